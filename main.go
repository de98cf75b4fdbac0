package main

import (
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"github.com/tommyyama2020/corda/agent"
	"github.com/tommyyama2020/corda/config"
	"github.com/tommyyama2020/corda/logger"
)

type cfg struct {
	config.Config
}

type cli struct {
	cfg cfg
}

func setupFlags(cmd *cobra.Command) error {
	cmd.Flags().String("config-file", "", "Path to config file.")
	cmd.Flags().String("redis-addr", "localhost:6379", "comma separated list of redis host:port")
	cmd.Flags().String("namespace", "flownode", "namespace used in storage")
	cmd.Flags().Int("http-port", 8080, "http port for rest endpoints")
	cmd.Flags().String("storage-impl", "redis", "implementation of underline storage")
	cmd.Flags().String("encoder-decoder", "JSON", "encoder decoder used to serialize checkpoints")
	cmd.Flags().Int("executor-capacity", 512, "action executor capacity")
	cmd.Flags().Int("partitions", 16, "number of queue partitions")
	cmd.Flags().String("party", "", "party identity hosted by this node")
	cmd.Flags().String("node-name", "node-1", "cluster node name")
	cmd.Flags().String("bind-addr", "", "serf gossip bind address, empty for single node")
	cmd.Flags().String("join-addrs", "", "comma separated serf addresses to join")
	cmd.Flags().String("analytics-file", "", "path of the action analytics log, empty to disable")
	cmd.Flags().Int("flow-timeout", 300, "flow timeout in seconds")
	cmd.Flags().Int("retry-delay", 5, "retry from safe point delay in seconds")
	cmd.Flags().String("log-level", "info", "log level")
	return viper.BindPFlags(cmd.Flags())
}

func (c *cli) setupConfig(cmd *cobra.Command, args []string) error {
	configFile, err := cmd.Flags().GetString("config-file")
	if err != nil {
		return err
	}
	viper.SetConfigFile(configFile)

	if err = viper.ReadInConfig(); err != nil {
		// it's ok if config file doesn't exist
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return err
		}
	}

	c.cfg.RedisConfig.Addrs = strings.Split(viper.GetString("redis-addr"), ",")
	c.cfg.RedisConfig.Namespace = viper.GetString("namespace")
	c.cfg.HttpPort = viper.GetInt("http-port")
	c.cfg.StorageType = config.StorageType(viper.GetString("storage-impl"))
	c.cfg.EncoderDecoderType = config.EncoderDecoderType(viper.GetString("encoder-decoder"))
	c.cfg.ActionExecutorCapacity = viper.GetInt("executor-capacity")
	c.cfg.PartitionCount = viper.GetInt("partitions")
	c.cfg.LocalParty = viper.GetString("party")
	c.cfg.ClusterConfig.NodeName = viper.GetString("node-name")
	c.cfg.ClusterConfig.BindAddr = viper.GetString("bind-addr")
	if joinAddrs := viper.GetString("join-addrs"); joinAddrs != "" {
		c.cfg.ClusterConfig.StartJoinAddrs = strings.Split(joinAddrs, ",")
	}
	c.cfg.ClusterConfig.Tags = map[string]string{"party": c.cfg.LocalParty}
	c.cfg.AnalyticsLogFile = viper.GetString("analytics-file")
	c.cfg.FlowTimeoutSeconds = viper.GetInt("flow-timeout")
	c.cfg.RetryDelaySeconds = viper.GetInt("retry-delay")
	c.cfg.LogLevel = viper.GetString("log-level")
	return logger.InitLogger(c.cfg.LogLevel)
}

func (c *cli) run(cmd *cobra.Command, args []string) error {
	node, err := agent.New(c.cfg.Config)
	if err != nil {
		return err
	}
	if err := node.Start(); err != nil {
		return err
	}
	sigc := make(chan os.Signal, 1)
	signal.Notify(sigc, syscall.SIGINT, syscall.SIGTERM)
	<-sigc
	return node.Shutdown()
}

func main() {
	cli := &cli{}

	cmd := &cobra.Command{
		Use:     "flownode",
		PreRunE: cli.setupConfig,
		RunE:    cli.run,
	}

	if err := setupFlags(cmd); err != nil {
		log.Fatal(err)
	}

	if err := cmd.Execute(); err != nil {
		log.Fatal(err)
	}
}
