package config

import (
	"errors"
	"strings"
	"time"

	apperrors "github.com/burakmert236/xsgfaucet/common/errors"
	"github.com/spf13/viper"
)

const (
	StorageDriverDynamoDB = "dynamodb"
	StorageDriverMemory   = "memory"
)

type Config struct {
	AWS      AWSConfig      `mapstructure:"aws"`
	DynamoDB DynamoDBConfig `mapstructure:"dynamodb"`
	Storage  StorageConfig  `mapstructure:"storage"`
	Server   ServerConfig   `mapstructure:"server"`
	NATS     NATSConfig     `mapstructure:"nats"`
	Redis    RedisConfig    `mapstructure:"redis"`
	Node     NodeConfig     `mapstructure:"node"`
	Explorer ExplorerConfig `mapstructure:"explorer"`
	Bot      BotConfig      `mapstructure:"bot"`
	Stats    StatsConfig    `mapstructure:"stats"`
	Worker   WorkerConfig   `mapstructure:"worker"`
	Log      LogConfig      `mapstructure:"log"`
}

type AWSConfig struct {
	Region          string `mapstructure:"region"`
	AccessKeyID     string `mapstructure:"access_key_id"`
	SecretAccessKey string `mapstructure:"secret_access_key"`
	Endpoint        string `mapstructure:"endpoint"`
}

type DynamoDBConfig struct {
	TableName        string `mapstructure:"table_name"`
	MaxRetries       int    `mapstructure:"max_retries"`
	UseLocalEndpoint bool   `mapstructure:"use_local_endpoint"`
}

type StorageConfig struct {
	Driver string `mapstructure:"driver"`
}

type ServerConfig struct {
	GRPCPort       int    `mapstructure:"grpc_port"`
	MetricsAddress string `mapstructure:"metrics_address"`
	Environment    string `mapstructure:"environment"`
}

type NATSConfig struct {
	URL                  string `mapstructure:"url"`
	MaxReconnect         int    `mapstructure:"max_reconnect"`
	ReconnectWaitSeconds int    `mapstructure:"reconnect_wait_seconds"`
	TimeoutSeconds       int    `mapstructure:"timeout_seconds"`
	FeedStream           string `mapstructure:"feed_stream"`
	FeedSubject          string `mapstructure:"feed_subject"`
	NotificationStream   string `mapstructure:"notification_stream"`
}

type RedisConfig struct {
	Address      string        `mapstructure:"address"`
	Password     string        `mapstructure:"password"`
	DB           int           `mapstructure:"db"`
	PoolSize     int           `mapstructure:"pool_size"`
	MinIdleConns int           `mapstructure:"min_idle_conns"`
	DialTimeout  time.Duration `mapstructure:"dial_timeout"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
}

// NodeConfig points at the funding-source wallet node (JSON-RPC).
type NodeConfig struct {
	URL      string        `mapstructure:"url"`
	Username string        `mapstructure:"username"`
	Password string        `mapstructure:"password"`
	Timeout  time.Duration `mapstructure:"timeout"`
	RPS      float64       `mapstructure:"rps"`
	Burst    int           `mapstructure:"burst"`
}

type ExplorerConfig struct {
	Enabled          bool          `mapstructure:"enabled"`
	URL              string        `mapstructure:"url"`
	SyncPollInterval time.Duration `mapstructure:"sync_poll_interval"`
}

type BotConfig struct {
	TrackHashtags          []string       `mapstructure:"track_hashtags"`
	AddressPrefixes        []string       `mapstructure:"address_prefixes"`
	AddressMinLength       int            `mapstructure:"address_min_length"` // address tokens must be longer than this
	DailyBudget            float64        `mapstructure:"daily_budget"`
	FriendMentionCap       float64        `mapstructure:"friend_mention_cap"`
	TagCap                 float64        `mapstructure:"tag_cap"`
	CurrencyPrecision      int32          `mapstructure:"currency_precision"`
	MinTextLength          int            `mapstructure:"min_text_length"`
	LegitimacyFilter       bool           `mapstructure:"legitimacy_filter"`
	MinFollowers           int            `mapstructure:"min_followers"`
	MaxFriendFollowerRatio float64        `mapstructure:"max_friend_follower_ratio"`
	Messages               MessagesConfig `mapstructure:"messages"`
}

// MessagesConfig holds reply templates. Placeholders: {amount}, {remaining}, {txid}.
// An empty rejection template keeps the bot silent for that outcome.
type MessagesConfig struct {
	Rewarded       string `mapstructure:"rewarded"`
	RewardedDM     string `mapstructure:"rewarded_dm"`
	ReachedLimit   string `mapstructure:"reached_limit"`
	DailyLimit     string `mapstructure:"daily_limit"`
	FaucetDrained  string `mapstructure:"faucet_drained"`
	Reply          string `mapstructure:"reply"`
	MissingHashtag string `mapstructure:"missing_hashtag"`
	MissingAddress string `mapstructure:"missing_address"`
	NotLegitimate  string `mapstructure:"not_legitimate"`
	TooShort       string `mapstructure:"too_short"`
}

// StatsConfig templates take {period}, {new_users}, {amount}, {withdrawals}.
type StatsConfig struct {
	PublishSpec    string `mapstructure:"publish_spec"`
	DailyMessage   string `mapstructure:"daily_message"`
	MonthlyMessage string `mapstructure:"monthly_message"`
	YearlyMessage  string `mapstructure:"yearly_message"`
}

type WorkerConfig struct {
	FeedID            string        `mapstructure:"feed_id"`
	PollInterval      time.Duration `mapstructure:"poll_interval"`
	BatchSize         int           `mapstructure:"batch_size"`
	BackoffInitial    time.Duration `mapstructure:"backoff_initial"`
	BackoffMax        time.Duration `mapstructure:"backoff_max"`
	BackoffMultiplier float64       `mapstructure:"backoff_multiplier"`
	WatchdogSpec      string        `mapstructure:"watchdog_spec"`
	BalanceSpec       string        `mapstructure:"balance_spec"`
}

type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

func Load(configPath string) (*Config, error) {
	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath("./config")
	v.AddConfigPath(".")
	v.AddConfigPath(configPath)

	setDefaults(v)

	v.SetEnvPrefix("FAUCET")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, err
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("aws.region", "eu-central-1")
	v.SetDefault("aws.endpoint", "")
	v.SetDefault("dynamodb.table_name", "xsg-faucet")
	v.SetDefault("dynamodb.max_retries", 3)
	v.SetDefault("dynamodb.use_local_endpoint", false)
	v.SetDefault("storage.driver", StorageDriverDynamoDB)

	v.SetDefault("server.grpc_port", 50051)
	v.SetDefault("server.metrics_address", ":9102")
	v.SetDefault("server.environment", "development")

	v.SetDefault("nats.url", "nats://localhost:4222")
	v.SetDefault("nats.max_reconnect", -1)
	v.SetDefault("nats.reconnect_wait_seconds", 2)
	v.SetDefault("nats.timeout_seconds", 5)
	v.SetDefault("nats.feed_stream", "FAUCET_FEED")
	v.SetDefault("nats.feed_subject", "feed.posts")
	v.SetDefault("nats.notification_stream", "FAUCET_NOTIFICATIONS")

	v.SetDefault("redis.address", "localhost:6379")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.pool_size", 10)
	v.SetDefault("redis.min_idle_conns", 2)
	v.SetDefault("redis.dial_timeout", 5*time.Second)
	v.SetDefault("redis.read_timeout", 3*time.Second)
	v.SetDefault("redis.write_timeout", 3*time.Second)

	v.SetDefault("node.url", "")
	v.SetDefault("node.username", "")
	v.SetDefault("node.password", "")
	v.SetDefault("node.timeout", 15*time.Second)
	v.SetDefault("node.rps", 5.0)
	v.SetDefault("node.burst", 10)

	v.SetDefault("explorer.enabled", false)
	v.SetDefault("explorer.url", "")
	v.SetDefault("explorer.sync_poll_interval", 30*time.Second)

	v.SetDefault("bot.track_hashtags", []string{"#xsg"})
	v.SetDefault("bot.address_prefixes", []string{"s1", "s3"})
	v.SetDefault("bot.address_min_length", 30)
	v.SetDefault("bot.daily_budget", 1440.0)
	v.SetDefault("bot.friend_mention_cap", 7.5)
	v.SetDefault("bot.tag_cap", 1.25)
	v.SetDefault("bot.currency_precision", 2)
	v.SetDefault("bot.min_text_length", 40)
	v.SetDefault("bot.legitimacy_filter", true)
	v.SetDefault("bot.min_followers", 10)
	v.SetDefault("bot.max_friend_follower_ratio", 10.0)
	v.SetDefault("bot.messages.rewarded", "Thanks for spreading the word! {amount} XSG is on its way.")
	v.SetDefault("bot.messages.rewarded_dm", "Your reward of {amount} XSG was sent. Transaction: {txid}")
	v.SetDefault("bot.messages.reached_limit", "You have reached your reward limit. Grow your audience to earn more!")
	v.SetDefault("bot.messages.daily_limit", "You have already been rewarded today. Come back in {remaining}.")
	v.SetDefault("bot.messages.faucet_drained", "The faucet is empty right now. Please try again later.")
	v.SetDefault("bot.messages.reply", "")
	v.SetDefault("bot.messages.missing_hashtag", "")
	v.SetDefault("bot.messages.missing_address", "")
	v.SetDefault("bot.messages.not_legitimate", "")
	v.SetDefault("bot.messages.too_short", "Your post is too short to qualify for a reward.")

	v.SetDefault("stats.publish_spec", "5 0 * * *")
	v.SetDefault("stats.daily_message", "Faucet stats for {period}: {new_users} new users, {amount} XSG paid in {withdrawals} withdrawals.")
	v.SetDefault("stats.monthly_message", "Faucet stats for {period}: {new_users} new users, {amount} XSG paid in {withdrawals} withdrawals.")
	v.SetDefault("stats.yearly_message", "Faucet stats for {period}: {new_users} new users, {amount} XSG paid in {withdrawals} withdrawals.")

	v.SetDefault("worker.feed_id", "posts")
	v.SetDefault("worker.poll_interval", 2*time.Minute)
	v.SetDefault("worker.batch_size", 100)
	v.SetDefault("worker.backoff_initial", 2*time.Second)
	v.SetDefault("worker.backoff_max", 5*time.Minute)
	v.SetDefault("worker.backoff_multiplier", 2.0)
	v.SetDefault("worker.watchdog_spec", "@every 1h")
	v.SetDefault("worker.balance_spec", "@every 5m")

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
}

// Validate reports settings the service cannot start without.
func (c *Config) Validate() error {
	var missing []string

	if strings.TrimSpace(c.Node.URL) == "" {
		missing = append(missing, "node.url")
	}
	if c.Bot.DailyBudget <= 0 {
		missing = append(missing, "bot.daily_budget")
	}
	if c.Bot.FriendMentionCap <= 0 {
		missing = append(missing, "bot.friend_mention_cap")
	}
	if c.Bot.TagCap <= 0 {
		missing = append(missing, "bot.tag_cap")
	}
	if len(c.Bot.TrackHashtags) == 0 {
		missing = append(missing, "bot.track_hashtags")
	}
	if c.Bot.CurrencyPrecision < 0 {
		missing = append(missing, "bot.currency_precision")
	}
	if c.Worker.FeedID == "" {
		missing = append(missing, "worker.feed_id")
	}
	if c.Explorer.Enabled && strings.TrimSpace(c.Explorer.URL) == "" {
		missing = append(missing, "explorer.url")
	}

	switch c.Storage.Driver {
	case StorageDriverMemory:
	case StorageDriverDynamoDB:
		if c.DynamoDB.TableName == "" {
			missing = append(missing, "dynamodb.table_name")
		}
	default:
		missing = append(missing, "storage.driver")
	}

	if len(missing) > 0 {
		return apperrors.New(apperrors.CodeConfiguration, "missing or invalid settings: "+strings.Join(missing, ", "))
	}

	return nil
}
