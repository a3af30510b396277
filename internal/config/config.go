package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/skyduel/dogfight/internal/battle"
	"github.com/skyduel/dogfight/pkg/core"
	"github.com/spf13/viper"
)

// FileName is the config file looked up in the config directory.
const FileName = "dogfight.cfg.json"

// MemoryConfig holds in-memory/JSON storage backend settings
type MemoryConfig struct {
	OutputDir      string `json:"outputDir" mapstructure:"outputDir"`
	CompressOutput bool   `json:"compressOutput" mapstructure:"compressOutput"`
}

// SQLiteConfig holds settings for the in-memory sqlite backend.
type SQLiteConfig struct {
	DumpInterval time.Duration
	OutputDir    string
}

// WebsocketConfig holds the live streaming endpoint.
type WebsocketConfig struct {
	URL    string
	Secret string
}

// StorageConfig selects and configures the recording backend. Type is a
// comma separated list of memory, sqlite, postgres and websocket.
type StorageConfig struct {
	Type      string
	Memory    MemoryConfig
	SQLite    SQLiteConfig
	Websocket WebsocketConfig
}

// Types splits Type into its trimmed, non-empty parts.
func (c StorageConfig) Types() []string {
	var out []string
	for _, t := range strings.Split(c.Type, ",") {
		if t = strings.TrimSpace(t); t != "" {
			out = append(out, t)
		}
	}
	return out
}

// OTelConfig holds OpenTelemetry settings.
type OTelConfig struct {
	Enabled      bool
	ServiceName  string
	BatchTimeout time.Duration
	Endpoint     string
	Insecure     bool
}

// DBConfig holds the postgres connection settings.
type DBConfig struct {
	Host     string
	Port     string
	Username string
	Password string
	Database string
}

// DSN returns the libpq connection string.
func (c DBConfig) DSN() string {
	return fmt.Sprintf(`host=%s port=%s user=%s password=%s dbname=%s sslmode=disable`,
		c.Host, c.Port, c.Username, c.Password, c.Database)
}

// InfluxConfig holds InfluxDB connection settings.
type InfluxConfig struct {
	Enabled  bool
	Protocol string
	Host     string
	Port     string
	Token    string
	Org      string
	Bucket   string
}

// URL returns the server address of the influx instance.
func (c InfluxConfig) URL() string {
	return fmt.Sprintf("%s://%s:%s", c.Protocol, c.Host, c.Port)
}

// RunnerConfig controls how many episodes are played and how they are recorded.
type RunnerConfig struct {
	Episodes        int
	Parallel        int
	FrameInterval   int
	DecisionTicks   int
	Policies        [2]string // indexed by core.Color
	MonitorInterval time.Duration
	Scenario        string
	Tag             string
	Upload          bool
}

// RewardConfig holds the per-step reward shaping for a side.
type RewardConfig struct {
	Win         float64
	Draw        float64
	Lose        float64
	TimePenalty float64
	Kill        float64
	Loss        float64
}

// Load reads configuration from JSON file and sets default values.
// configDir is the directory containing the config file.
func Load(configDir string) error {
	setDefaults()

	viper.SetEnvPrefix("DOGFIGHT")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	viper.SetConfigName(FileName)
	viper.AddConfigPath(configDir)
	viper.SetConfigType("json")

	err := viper.ReadInConfig()
	if err != nil {
		return fmt.Errorf("error reading config file: %v", err)
	}

	return nil
}

func setDefaults() {
	def := battle.DefaultOptions()

	viper.SetDefault("logLevel", "info")
	viper.SetDefault("logsDir", "./dogfightlogs")

	viper.SetDefault("game.width", def.Width)
	viper.SetDefault("game.height", def.Height)
	viper.SetDefault("game.deltaTime", def.DeltaTime)
	viper.SetDefault("game.maxDuration", def.MaxDuration)
	viper.SetDefault("game.destroyOnBoundaryExit", def.DestroyOnBoundaryExit)
	viper.SetDefault("game.seed", def.Seed)
	viper.SetDefault("game.bullseye.x", def.Bullseye.X)
	viper.SetDefault("game.bullseye.y", def.Bullseye.Y)

	viper.SetDefault("aircraft.speed", def.Aircraft.Speed)
	viper.SetDefault("aircraft.turnRadius", def.Aircraft.TurnRadius)
	viper.SetDefault("aircraft.fuelCapacity", def.Aircraft.FuelCapacity)
	viper.SetDefault("aircraft.fuelConsumptionRate", def.Aircraft.FuelConsumptionRate)
	viper.SetDefault("aircraft.radarRadius", def.Aircraft.RadarRadius)
	viper.SetDefault("aircraft.missileCount", def.Aircraft.MissileCount)
	viper.SetDefault("aircraft.collisionRadius", def.Aircraft.CollisionRadius)
	viper.SetDefault("aircraft.fireInterval", def.Aircraft.FireInterval)

	viper.SetDefault("missile.speed", def.Missile.Speed)
	viper.SetDefault("missile.turnRadius", def.Missile.TurnRadius)
	viper.SetDefault("missile.fuelCapacity", def.Missile.FuelCapacity)
	viper.SetDefault("missile.fuelConsumptionRate", def.Missile.FuelConsumptionRate)
	viper.SetDefault("missile.collisionRadius", def.Missile.CollisionRadius)
	viper.SetDefault("missile.rerouteInterval", def.Missile.RerouteInterval)

	viper.SetDefault("home.radius", def.Home.Radius)
	viper.SetDefault("home.spawnRadius", def.Home.SpawnRadius)
	viper.SetDefault("home.refuel", def.Home.Refuel)
	viper.SetDefault("home.refuelThreshold", def.Home.RefuelThreshold)
	viper.SetDefault("home.replenish", def.Home.Replenish)
	viper.SetDefault("home.replenishThreshold", def.Home.ReplenishThreshold)
	viper.SetDefault("home.attack", def.Home.Attack)

	for _, c := range core.Colors {
		viper.SetDefault(sideKey(c, "homeName"), def.Sides[c].HomeName)
		viper.SetDefault(sideKey(c, "callsigns"), def.Sides[c].Callsigns)
	}

	viper.SetDefault("map.originLon", 0.0)
	viper.SetDefault("map.originLat", 0.0)

	viper.SetDefault("api.serverUrl", "http://localhost:5000")
	viper.SetDefault("api.apiKey", "")

	viper.SetDefault("storage.type", "memory")
	viper.SetDefault("storage.memory.outputDir", "./recordings")
	viper.SetDefault("storage.memory.compressOutput", true)
	viper.SetDefault("storage.sqlite.dumpInterval", "3m")
	viper.SetDefault("storage.sqlite.outputDir", "./recordings")
	viper.SetDefault("storage.websocket.url", "ws://localhost:5000/api/v1/stream")
	viper.SetDefault("storage.websocket.secret", "")

	viper.SetDefault("db.host", "localhost")
	viper.SetDefault("db.port", "5432")
	viper.SetDefault("db.username", "postgres")
	viper.SetDefault("db.password", "postgres")
	viper.SetDefault("db.database", "dogfight")

	viper.SetDefault("influx.enabled", false)
	viper.SetDefault("influx.host", "localhost")
	viper.SetDefault("influx.port", "8086")
	viper.SetDefault("influx.protocol", "http")
	viper.SetDefault("influx.token", "supersecrettoken")
	viper.SetDefault("influx.org", "dogfight-metrics")
	viper.SetDefault("influx.bucket", "episodes")

	viper.SetDefault("graylog.enabled", false)
	viper.SetDefault("graylog.address", "localhost:12201")

	viper.SetDefault("otel.enabled", false)
	viper.SetDefault("otel.serviceName", "dogfight")
	viper.SetDefault("otel.batchTimeout", "5s")
	viper.SetDefault("otel.endpoint", "")
	viper.SetDefault("otel.insecure", true)

	viper.SetDefault("runner.episodes", 1)
	viper.SetDefault("runner.parallel", 1)
	viper.SetDefault("runner.frameInterval", 10)
	viper.SetDefault("runner.decisionTicks", 10)
	viper.SetDefault("runner.policy.red", "scripted")
	viper.SetDefault("runner.policy.blue", "scripted")
	viper.SetDefault("runner.monitorInterval", "10s")
	viper.SetDefault("runner.scenario", "")
	viper.SetDefault("runner.tag", "Sim")
	viper.SetDefault("runner.upload", false)

	viper.SetDefault("reward.win", 1.0)
	viper.SetDefault("reward.draw", 0.0)
	viper.SetDefault("reward.lose", -1.0)
	viper.SetDefault("reward.timePenalty", 0.001)
	viper.SetDefault("reward.kill", 0.0)
	viper.SetDefault("reward.loss", 0.0)
}

func sideKey(c core.Color, field string) string {
	return "sides." + c.String() + "." + field
}

// GetString returns a string config value.
func GetString(key string) string {
	return viper.GetString(key)
}

// GetInt returns an int config value.
func GetInt(key string) int {
	return viper.GetInt(key)
}

// GetBool returns a bool config value.
func GetBool(key string) bool {
	return viper.GetBool(key)
}

// GetOptions builds the battle options from the loaded configuration.
func GetOptions() battle.Options {
	o := battle.Options{
		Width:                 viper.GetFloat64("game.width"),
		Height:                viper.GetFloat64("game.height"),
		DeltaTime:             viper.GetFloat64("game.deltaTime"),
		MaxDuration:           viper.GetFloat64("game.maxDuration"),
		DestroyOnBoundaryExit: viper.GetBool("game.destroyOnBoundaryExit"),
		Seed:                  viper.GetUint64("game.seed"),
		Bullseye: core.XY{
			X: viper.GetFloat64("game.bullseye.x"),
			Y: viper.GetFloat64("game.bullseye.y"),
		},
		Aircraft: battle.AircraftOptions{
			Speed:               viper.GetFloat64("aircraft.speed"),
			TurnRadius:          viper.GetFloat64("aircraft.turnRadius"),
			FuelCapacity:        viper.GetFloat64("aircraft.fuelCapacity"),
			FuelConsumptionRate: viper.GetFloat64("aircraft.fuelConsumptionRate"),
			RadarRadius:         viper.GetFloat64("aircraft.radarRadius"),
			MissileCount:        viper.GetInt("aircraft.missileCount"),
			CollisionRadius:     viper.GetFloat64("aircraft.collisionRadius"),
			FireInterval:        viper.GetFloat64("aircraft.fireInterval"),
		},
		Missile: battle.MissileOptions{
			Speed:               viper.GetFloat64("missile.speed"),
			TurnRadius:          viper.GetFloat64("missile.turnRadius"),
			FuelCapacity:        viper.GetFloat64("missile.fuelCapacity"),
			FuelConsumptionRate: viper.GetFloat64("missile.fuelConsumptionRate"),
			CollisionRadius:     viper.GetFloat64("missile.collisionRadius"),
			RerouteInterval:     viper.GetFloat64("missile.rerouteInterval"),
		},
		Home: battle.HomeOptions{
			Radius:             viper.GetFloat64("home.radius"),
			SpawnRadius:        viper.GetFloat64("home.spawnRadius"),
			Refuel:             viper.GetBool("home.refuel"),
			RefuelThreshold:    viper.GetFloat64("home.refuelThreshold"),
			Replenish:          viper.GetBool("home.replenish"),
			ReplenishThreshold: viper.GetInt("home.replenishThreshold"),
			Attack:             viper.GetBool("home.attack"),
		},
	}
	for _, c := range core.Colors {
		o.Sides[c] = battle.SideOptions{
			HomeName:  viper.GetString(sideKey(c, "homeName")),
			Callsigns: viper.GetStringSlice(sideKey(c, "callsigns")),
		}
	}
	return o
}

// GetStorageConfig returns the recording backend settings.
func GetStorageConfig() StorageConfig {
	return StorageConfig{
		Type: viper.GetString("storage.type"),
		Memory: MemoryConfig{
			OutputDir:      viper.GetString("storage.memory.outputDir"),
			CompressOutput: viper.GetBool("storage.memory.compressOutput"),
		},
		SQLite: SQLiteConfig{
			DumpInterval: viper.GetDuration("storage.sqlite.dumpInterval"),
			OutputDir:    viper.GetString("storage.sqlite.outputDir"),
		},
		Websocket: WebsocketConfig{
			URL:    viper.GetString("storage.websocket.url"),
			Secret: viper.GetString("storage.websocket.secret"),
		},
	}
}

// GetOTelConfig returns the OpenTelemetry settings.
func GetOTelConfig() OTelConfig {
	return OTelConfig{
		Enabled:      viper.GetBool("otel.enabled"),
		ServiceName:  viper.GetString("otel.serviceName"),
		BatchTimeout: viper.GetDuration("otel.batchTimeout"),
		Endpoint:     viper.GetString("otel.endpoint"),
		Insecure:     viper.GetBool("otel.insecure"),
	}
}

// GetDBConfig returns the postgres connection settings.
func GetDBConfig() DBConfig {
	return DBConfig{
		Host:     viper.GetString("db.host"),
		Port:     viper.GetString("db.port"),
		Username: viper.GetString("db.username"),
		Password: viper.GetString("db.password"),
		Database: viper.GetString("db.database"),
	}
}

// GetInfluxConfig returns the InfluxDB settings.
func GetInfluxConfig() InfluxConfig {
	return InfluxConfig{
		Enabled:  viper.GetBool("influx.enabled"),
		Protocol: viper.GetString("influx.protocol"),
		Host:     viper.GetString("influx.host"),
		Port:     viper.GetString("influx.port"),
		Token:    viper.GetString("influx.token"),
		Org:      viper.GetString("influx.org"),
		Bucket:   viper.GetString("influx.bucket"),
	}
}

// GetRunnerConfig returns the episode runner settings.
func GetRunnerConfig() RunnerConfig {
	rc := RunnerConfig{
		Episodes:        viper.GetInt("runner.episodes"),
		Parallel:        viper.GetInt("runner.parallel"),
		FrameInterval:   viper.GetInt("runner.frameInterval"),
		DecisionTicks:   viper.GetInt("runner.decisionTicks"),
		MonitorInterval: viper.GetDuration("runner.monitorInterval"),
		Scenario:        viper.GetString("runner.scenario"),
		Tag:             viper.GetString("runner.tag"),
		Upload:          viper.GetBool("runner.upload"),
	}
	for _, c := range core.Colors {
		rc.Policies[c] = viper.GetString("runner.policy." + c.String())
	}
	if rc.Parallel < 1 {
		rc.Parallel = 1
	}
	if rc.FrameInterval < 1 {
		rc.FrameInterval = 1
	}
	if rc.DecisionTicks < 1 {
		rc.DecisionTicks = 1
	}
	return rc
}

// GetRewardConfig returns the reward shaping settings.
func GetRewardConfig() RewardConfig {
	return RewardConfig{
		Win:         viper.GetFloat64("reward.win"),
		Draw:        viper.GetFloat64("reward.draw"),
		Lose:        viper.GetFloat64("reward.lose"),
		TimePenalty: viper.GetFloat64("reward.timePenalty"),
		Kill:        viper.GetFloat64("reward.kill"),
		Loss:        viper.GetFloat64("reward.loss"),
	}
}

// GetMapOrigin returns the lon/lat the game origin is anchored to.
func GetMapOrigin() (lon, lat float64) {
	return viper.GetFloat64("map.originLon"), viper.GetFloat64("map.originLat")
}
