package config

import (
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	App           AppConfig           `mapstructure:"app"`
	Server        ServerConfig        `mapstructure:"server"`
	Log           LogConfig           `mapstructure:"log"`
	DB            DBConfig            `mapstructure:"db"`
	Cron          CronConfig          `mapstructure:"cron"`
	MarketData    MarketDataConfig    `mapstructure:"market_data"`
	PumpStream    PumpStreamConfig    `mapstructure:"pump_stream"`
	Jupiter       JupiterConfig       `mapstructure:"jupiter"`
	Solana        SolanaConfig        `mapstructure:"solana"`
	Agent         AgentConfig         `mapstructure:"agent"`
	Risk          RiskConfig          `mapstructure:"risk"`
	Security      SecurityConfig      `mapstructure:"security"`
	Executor      ExecutorConfig      `mapstructure:"executor"`
	Notifications NotificationsConfig `mapstructure:"notifications"`
}

type AppConfig struct {
	Env string `mapstructure:"env"`
}

type ServerConfig struct {
	HTTPAddr string `mapstructure:"http_addr"`
}

type LogConfig struct {
	Level             string `mapstructure:"level"`
	Encoding          string `mapstructure:"encoding"`
	Development       bool   `mapstructure:"development"`
	Sampling          bool   `mapstructure:"sampling"`
	DisableCaller     bool   `mapstructure:"disable_caller"`
	DisableStacktrace bool   `mapstructure:"disable_stacktrace"`
}

type DBConfig struct {
	DSN             string        `mapstructure:"dsn"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
	ConnMaxIdleTime time.Duration `mapstructure:"conn_max_idle_time"`
	Timezone        string        `mapstructure:"timezone"`
}

type CronConfig struct {
	Enabled           bool   `mapstructure:"enabled"`
	PriceRefresh      string `mapstructure:"price_refresh"`
	PortfolioSnapshot string `mapstructure:"portfolio_snapshot"`
	DailyStats        string `mapstructure:"daily_stats"`
	SignalCleanup     string `mapstructure:"signal_cleanup"`
	SecurityRefresh   string `mapstructure:"security_refresh"`
	DecisionExpiry    string `mapstructure:"decision_expiry"`
	TradeConfirm      string `mapstructure:"trade_confirm"`
}

type MarketDataConfig struct {
	BaseURL         string        `mapstructure:"base_url"`
	Timeout         time.Duration `mapstructure:"timeout"`
	PollInterval    time.Duration `mapstructure:"poll_interval"`
	Watchlist       []string      `mapstructure:"watchlist"`
	MinLiquidityUSD float64       `mapstructure:"min_liquidity_usd"`
	SnapshotKeep    time.Duration `mapstructure:"snapshot_keep"`
}

type PumpStreamConfig struct {
	Enabled       bool          `mapstructure:"enabled"`
	URL           string        `mapstructure:"url"`
	TrackTrades   bool          `mapstructure:"track_trades"`
	MinTradeSOL   float64       `mapstructure:"min_trade_sol"`
	ReconnectBase time.Duration `mapstructure:"reconnect_base"`
	ReconnectMax  time.Duration `mapstructure:"reconnect_max"`
}

type JupiterConfig struct {
	BaseURL            string        `mapstructure:"base_url"`
	PriceBaseURL       string        `mapstructure:"price_base_url"`
	Timeout            time.Duration `mapstructure:"timeout"`
	DefaultSlippageBps int           `mapstructure:"default_slippage_bps"`
}

type SolanaConfig struct {
	RPCURL              string        `mapstructure:"rpc_url"`
	Timeout             time.Duration `mapstructure:"timeout"`
	WalletPubkey        string        `mapstructure:"wallet_pubkey"`
	PriorityFeeLamports int64         `mapstructure:"priority_fee_lamports"`
	ConfirmTimeout      time.Duration `mapstructure:"confirm_timeout"`
	ConfirmPoll         time.Duration `mapstructure:"confirm_poll"`
}

type AgentConfig struct {
	Model          string        `mapstructure:"model"`
	BaseURL        string        `mapstructure:"base_url"`
	APIKeyEnv      string        `mapstructure:"api_key_env"`
	Interval       time.Duration `mapstructure:"interval"`
	MaxCandidates  int           `mapstructure:"max_candidates"`
	MinConfidence  float64       `mapstructure:"min_confidence"`
	DecisionTTL    time.Duration `mapstructure:"decision_ttl"`
	RequestTimeout time.Duration `mapstructure:"request_timeout"`
	Temperature    float64       `mapstructure:"temperature"`
}

type RiskConfig struct {
	MaxTotalExposureUSD  float64 `mapstructure:"max_total_exposure_usd"`
	MaxPerTokenUSD       float64 `mapstructure:"max_per_token_usd"`
	MaxDailyLossUSD      float64 `mapstructure:"max_daily_loss_usd"`
	MaxOpenPositions     int     `mapstructure:"max_open_positions"`
	KellyFractionCap     float64 `mapstructure:"kelly_fraction_cap"`
	DefaultKellyFraction float64 `mapstructure:"default_kelly_fraction"`
	MinDataFreshnessMs   int     `mapstructure:"min_data_freshness_ms"`
	StaleDataAction      string  `mapstructure:"stale_data_action"`
}

type SecurityConfig struct {
	BaseURL         string        `mapstructure:"base_url"`
	Timeout         time.Duration `mapstructure:"timeout"`
	CacheTTL        time.Duration `mapstructure:"cache_ttl"`
	MinScore        float64       `mapstructure:"min_score"`
	MaxTopHolderPct float64       `mapstructure:"max_top_holder_pct"`
	MinLPLockedPct  float64       `mapstructure:"min_lp_locked_pct"`
	Blacklist       []string      `mapstructure:"blacklist"`
}

type ExecutorConfig struct {
	DryRun         bool    `mapstructure:"dry_run"`
	MaxTradeUSD    float64 `mapstructure:"max_trade_usd"`
	MaxSlippageBps int     `mapstructure:"max_slippage_bps"`
	BaseMint       string  `mapstructure:"base_mint"`
}

type NotificationsConfig struct {
	WebhookURL string `mapstructure:"webhook_url"`
	BotName    string `mapstructure:"bot_name"`
}

func Load(path string, envOnly bool) (Config, error) {
	v := viper.New()
	v.SetEnvPrefix("NX")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.SetConfigFile(path)
	v.SetConfigType("yaml")
	v.AutomaticEnv()

	v.SetDefault("app.env", "dev")
	v.SetDefault("server.http_addr", ":8080")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.encoding", "console")
	v.SetDefault("log.development", true)
	v.SetDefault("log.sampling", false)
	v.SetDefault("log.disable_caller", false)
	v.SetDefault("log.disable_stacktrace", false)
	v.SetDefault("db.max_open_conns", 20)
	v.SetDefault("db.max_idle_conns", 5)
	v.SetDefault("db.conn_max_lifetime", "30m")
	v.SetDefault("db.conn_max_idle_time", "5m")
	v.SetDefault("db.timezone", "UTC")

	v.SetDefault("cron.enabled", true)
	v.SetDefault("cron.price_refresh", "@every 30s")
	v.SetDefault("cron.portfolio_snapshot", "@every 1h")
	v.SetDefault("cron.daily_stats", "@every 6h")
	v.SetDefault("cron.signal_cleanup", "@every 10m")
	v.SetDefault("cron.security_refresh", "@every 30m")
	v.SetDefault("cron.decision_expiry", "@every 1m")
	v.SetDefault("cron.trade_confirm", "@every 30s")

	v.SetDefault("market_data.base_url", "https://api.dexscreener.com")
	v.SetDefault("market_data.timeout", "10s")
	v.SetDefault("market_data.poll_interval", "15s")
	v.SetDefault("market_data.min_liquidity_usd", 10000)
	v.SetDefault("market_data.snapshot_keep", "48h")

	v.SetDefault("pump_stream.enabled", false)
	v.SetDefault("pump_stream.url", "wss://pumpportal.fun/api/data")
	v.SetDefault("pump_stream.track_trades", true)
	v.SetDefault("pump_stream.min_trade_sol", 10)
	v.SetDefault("pump_stream.reconnect_base", "1s")
	v.SetDefault("pump_stream.reconnect_max", "1m")

	v.SetDefault("jupiter.base_url", "https://quote-api.jup.ag/v6")
	v.SetDefault("jupiter.price_base_url", "https://price.jup.ag/v6")
	v.SetDefault("jupiter.timeout", "15s")
	v.SetDefault("jupiter.default_slippage_bps", 100)

	v.SetDefault("solana.rpc_url", "https://api.mainnet-beta.solana.com")
	v.SetDefault("solana.timeout", "15s")
	v.SetDefault("solana.priority_fee_lamports", 0)
	v.SetDefault("solana.confirm_timeout", "90s")
	v.SetDefault("solana.confirm_poll", "2s")

	v.SetDefault("agent.model", "gpt-4o-mini")
	v.SetDefault("agent.api_key_env", "OPENAI_API_KEY")
	v.SetDefault("agent.interval", "30s")
	v.SetDefault("agent.max_candidates", 10)
	v.SetDefault("agent.min_confidence", 0.6)
	v.SetDefault("agent.decision_ttl", "10m")
	v.SetDefault("agent.request_timeout", "45s")
	v.SetDefault("agent.temperature", 0.1)

	v.SetDefault("risk.max_total_exposure_usd", 2000)
	v.SetDefault("risk.max_per_token_usd", 250)
	v.SetDefault("risk.max_daily_loss_usd", 200)
	v.SetDefault("risk.max_open_positions", 10)
	v.SetDefault("risk.kelly_fraction_cap", 0.06)
	v.SetDefault("risk.default_kelly_fraction", 0.04)
	v.SetDefault("risk.min_data_freshness_ms", 60000)
	v.SetDefault("risk.stale_data_action", "block")

	v.SetDefault("security.base_url", "https://api.rugcheck.xyz/v1")
	v.SetDefault("security.timeout", "10s")
	v.SetDefault("security.cache_ttl", "30m")
	v.SetDefault("security.min_score", 0.5)
	v.SetDefault("security.max_top_holder_pct", 30)
	v.SetDefault("security.min_lp_locked_pct", 50)

	v.SetDefault("executor.dry_run", true)
	v.SetDefault("executor.max_trade_usd", 100)
	v.SetDefault("executor.max_slippage_bps", 300)
	// USDC mint: trades are quoted against USDC by default.
	v.SetDefault("executor.base_mint", "EPjFWdd5AufqSSqeM2qN1xzybapC8G4wEGGkZwyTDt1v")

	v.SetDefault("notifications.bot_name", "NumerusX")

	if !envOnly {
		if err := v.ReadInConfig(); err != nil {
			return Config{}, err
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, err
	}

	return cfg, nil
}
