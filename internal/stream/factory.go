package stream

import (
	"net"
	"strconv"
	"time"

	kafka "github.com/segmentio/kafka-go"
)

// NewWriter creates the writer the sensor records are published with.
func NewWriter(config WriterConfig) (*kafka.Writer, error) {
	if err := createTopic(config.Addr, config.TopicConfig); err != nil {
		return nil, err
	}

	w := &kafka.Writer{
		Addr:         kafka.TCP(config.Addr),
		Topic:        config.Topic,
		Balancer:     createBalancer(config.Balancer),
		RequiredAcks: kafka.RequireAll,
		BatchTimeout: 10 * time.Millisecond,
	}
	if config.BatchSize > 0 {
		w.BatchSize = config.BatchSize
	}
	return w, nil
}

// createTopic
func createTopic(addr string, config TopicConfig) error {
	if !config.CreateIfNotExist {
		return nil
	}

	conn, err := kafka.Dial("tcp", addr)
	if err != nil {
		return err
	}
	defer conn.Close()

	// Topics can only be created through the controller
	controller, err := conn.Controller()
	if err != nil {
		return err
	}

	controllerConn, err := kafka.Dial(
		"tcp",
		net.JoinHostPort(
			controller.Host,
			strconv.Itoa(controller.Port),
		),
	)
	if err != nil {
		return err
	}
	defer controllerConn.Close()

	numPartitions := config.NumPartitions
	if numPartitions <= 0 {
		numPartitions = 1
	}
	replicationFactor := config.ReplicationFactor
	if replicationFactor <= 0 {
		replicationFactor = 1
	}

	return controllerConn.CreateTopics(kafka.TopicConfig{
		Topic:             config.Topic,
		NumPartitions:     numPartitions,
		ReplicationFactor: replicationFactor,
	})
}

// createBalancer
func createBalancer(balancer string) kafka.Balancer {
	switch balancer {

	// Classical round robin
	case "roundrobin":
		return &kafka.RoundRobin{}

	// Partition that received the least bytes
	case "leastbytes":
		return &kafka.LeastBytes{}

	// FNV-1a, keeps the readings of a meter on one partition
	case "hash":
		return &kafka.Hash{}

	// CRC32 hash
	case "crc32":
		return &kafka.CRC32Balancer{}

	// Murmur2 hash
	case "murmur2":
		return &kafka.Murmur2Balancer{}

	default:
		return &kafka.Hash{}
	}
}
