package config

type StorageType string

const STORAGE_TYPE_REDIS StorageType = "redis"

type EncoderDecoderType string

const JSON_ENCODER_DECODER EncoderDecoderType = "JSON"

type Config struct {
	RedisConfig            RedisStorageConfig
	ClusterConfig          ClusterConfig
	HttpPort               int
	StorageType            StorageType
	EncoderDecoderType     EncoderDecoderType
	ActionExecutorCapacity int
	PartitionCount         int
	LocalParty             string
	AnalyticsLogFile       string
	MaxTimerDelaySeconds   int64
	FlowTimeoutSeconds     int
	RetryDelaySeconds      int
	LogLevel               string
}

type RedisStorageConfig struct {
	Addrs     []string
	Namespace string
}

type ClusterConfig struct {
	NodeName       string
	BindAddr       string
	Tags           map[string]string
	StartJoinAddrs []string
}
