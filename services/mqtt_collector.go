package services

import (
	"database/sql"
	"encoding/json"
	"log"
	"strconv"
	"sync"

	mqtt "github.com/eclipse/paho.mqtt.golang"

	"github.com/jpdeguzman/submeter-billing/backend/crypto"
)

// MQTTCollector subscribes to per-meter topics and records the published
// cumulative index as the meter's reading for the current day.
type MQTTCollector struct {
	db      *sql.DB
	clients map[string]mqtt.Client // broker URL -> client
	mu      sync.RWMutex
}

type mqttMeterConfig struct {
	Broker   string `json:"broker"`
	Topic    string `json:"topic"`
	Username string `json:"username"`
	Password string `json:"password"` // encrypted at rest
}

// mqttReadingMessage accepts the index field names published by the supported
// meter gateways.
type mqttReadingMessage struct {
	IndexValue *float64 `json:"index_value"`
	Reading    *float64 `json:"reading"`
	Value      *float64 `json:"value"`
}

func NewMQTTCollector(db *sql.DB) *MQTTCollector {
	return &MQTTCollector{
		db:      db,
		clients: make(map[string]mqtt.Client),
	}
}

func (mc *MQTTCollector) Start() {
	log.Println("=== MQTT Collector Starting ===")

	rows, err := mc.db.Query(`
		SELECT id, serial_number, connection_config
		FROM meters
		WHERE is_active = 1 AND connection_type = 'mqtt'
	`)
	if err != nil {
		log.Printf("[MQTT] ERROR: Failed to query MQTT meters: %v", err)
		return
	}
	defer rows.Close()

	key, err := crypto.GetEncryptionKey()
	if err != nil {
		log.Printf("[MQTT] ERROR: No encryption key available: %v", err)
		return
	}

	count := 0
	for rows.Next() {
		var meterID int
		var serial, configJSON string
		if err := rows.Scan(&meterID, &serial, &configJSON); err != nil {
			continue
		}

		var cfg mqttMeterConfig
		if err := json.Unmarshal([]byte(configJSON), &cfg); err != nil {
			log.Printf("[MQTT] ERROR: Invalid config for meter %s: %v", serial, err)
			continue
		}
		if cfg.Broker == "" || cfg.Topic == "" {
			log.Printf("[MQTT] ERROR: Meter %s config missing broker or topic", serial)
			continue
		}

		password, err := crypto.Decrypt(cfg.Password, key)
		if err != nil {
			log.Printf("[MQTT] ERROR: Could not decrypt credentials for meter %s: %v", serial, err)
			continue
		}

		client := mc.clientFor(cfg.Broker, cfg.Username, password)
		if client == nil {
			continue
		}

		id := meterID
		token := client.Subscribe(cfg.Topic, 0, func(c mqtt.Client, msg mqtt.Message) {
			mc.handleMessage(id, msg.Payload())
		})
		if token.Wait() && token.Error() != nil {
			log.Printf("[MQTT] ERROR: Subscribe failed for meter %s: %v", serial, token.Error())
			continue
		}

		count++
		log.Printf("[MQTT] Subscribed meter %s to %s", serial, cfg.Topic)
	}

	log.Printf("=== MQTT Collector Started (%d meters) ===", count)
}

func (mc *MQTTCollector) clientFor(broker, username, password string) mqtt.Client {
	mc.mu.Lock()
	defer mc.mu.Unlock()

	if client, ok := mc.clients[broker]; ok {
		return client
	}

	opts := mqtt.NewClientOptions().
		AddBroker(broker).
		SetAutoReconnect(true).
		SetConnectionLostHandler(func(c mqtt.Client, err error) {
			log.Printf("[MQTT] Connection lost to %s: %v", broker, err)
		})
	if username != "" {
		opts.SetUsername(username)
		opts.SetPassword(password)
	}

	client := mqtt.NewClient(opts)
	if token := client.Connect(); token.Wait() && token.Error() != nil {
		log.Printf("[MQTT] ERROR: Could not connect to %s: %v", broker, token.Error())
		return nil
	}

	log.Printf("[MQTT] Connected to broker %s", broker)
	mc.clients[broker] = client
	return client
}

func (mc *MQTTCollector) handleMessage(meterID int, payload []byte) {
	value, ok := parseIndexPayload(payload)
	if !ok {
		log.Printf("[MQTT] WARNING: Unparseable payload for meter %d: %s", meterID, string(payload))
		return
	}

	if err := recordDailyReading(mc.db, meterID, value, "mqtt"); err != nil {
		log.Printf("[MQTT] ERROR: Failed to record reading for meter %d: %v", meterID, err)
		return
	}
}

func parseIndexPayload(payload []byte) (float64, bool) {
	var msg mqttReadingMessage
	if err := json.Unmarshal(payload, &msg); err == nil {
		switch {
		case msg.IndexValue != nil:
			return *msg.IndexValue, true
		case msg.Reading != nil:
			return *msg.Reading, true
		case msg.Value != nil:
			return *msg.Value, true
		}
	}

	// Bare numeric payload
	if v, err := strconv.ParseFloat(string(payload), 64); err == nil {
		return v, true
	}
	return 0, false
}

func (mc *MQTTCollector) Stop() {
	mc.mu.Lock()
	defer mc.mu.Unlock()

	for broker, client := range mc.clients {
		client.Disconnect(250)
		log.Printf("[MQTT] Disconnected from %s", broker)
	}
	mc.clients = make(map[string]mqtt.Client)
}
