package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/skyduel/dogfight/internal/battle"
	"github.com/skyduel/dogfight/pkg/core"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, FileName), []byte(body), 0644))
	return dir
}

func TestLoad_WithValidConfigFile(t *testing.T) {
	t.Cleanup(viper.Reset)

	dir := writeConfig(t, `{
		"logLevel": "debug",
		"db": { "host": "10.0.0.1", "port": "5433" }
	}`)

	err := Load(dir)
	require.NoError(t, err)

	assert.Equal(t, "debug", viper.GetString("logLevel"))
	assert.Equal(t, "10.0.0.1", viper.GetString("db.host"))
	assert.Equal(t, "5433", viper.GetString("db.port"))
}

func TestLoad_DefaultValues(t *testing.T) {
	t.Cleanup(viper.Reset)

	require.NoError(t, Load(writeConfig(t, `{}`)))

	assert.Equal(t, "info", viper.GetString("logLevel"))
	assert.Equal(t, "./dogfightlogs", viper.GetString("logsDir"))
	assert.Equal(t, "http://localhost:5000", viper.GetString("api.serverUrl"))
	assert.Equal(t, "", viper.GetString("api.apiKey"))
	assert.Equal(t, "localhost", viper.GetString("db.host"))
	assert.Equal(t, "5432", viper.GetString("db.port"))
	assert.Equal(t, "dogfight", viper.GetString("db.database"))
	assert.Equal(t, false, viper.GetBool("graylog.enabled"))
	assert.Equal(t, "localhost:12201", viper.GetString("graylog.address"))
	assert.Equal(t, "memory", viper.GetString("storage.type"))
	assert.Equal(t, "3m", viper.GetString("storage.sqlite.dumpInterval"))
	assert.Equal(t, "scripted", viper.GetString("runner.policy.red"))
}

func TestLoad_MissingFile(t *testing.T) {
	t.Cleanup(viper.Reset)

	err := Load("/nonexistent/path")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "error reading config file")

	// defaults are still usable
	assert.Equal(t, "memory", GetStorageConfig().Type)
}

func TestLoad_EnvOverride(t *testing.T) {
	t.Cleanup(viper.Reset)
	t.Setenv("DOGFIGHT_GAME_WIDTH", "5000")

	require.NoError(t, Load(writeConfig(t, `{}`)))
	assert.Equal(t, 5000.0, GetOptions().Width)
}

func TestGetters(t *testing.T) {
	t.Cleanup(viper.Reset)
	viper.Set("testKey", "testValue")
	viper.Set("testInt", 42)
	viper.Set("testBool", true)

	assert.Equal(t, "testValue", GetString("testKey"))
	assert.Equal(t, 42, GetInt("testInt"))
	assert.Equal(t, true, GetBool("testBool"))
}

func TestGetOptions_DefaultsMatchBattleDefaults(t *testing.T) {
	t.Cleanup(viper.Reset)
	require.NoError(t, Load(writeConfig(t, `{}`)))

	assert.Equal(t, battle.DefaultOptions(), GetOptions())
}

func TestGetOptions_Override(t *testing.T) {
	t.Cleanup(viper.Reset)
	require.NoError(t, Load(writeConfig(t, `{
		"game": { "width": 20000, "maxDuration": 60, "seed": 9 },
		"aircraft": { "missileCount": 2, "radarRadius": 15000 },
		"missile": { "speed": 800 },
		"home": { "attack": true },
		"sides": { "blue": { "homeName": "carrier", "callsigns": ["viper", "cobra"] } }
	}`)))

	o := GetOptions()
	assert.Equal(t, 20000.0, o.Width)
	assert.Equal(t, 60.0, o.MaxDuration)
	assert.Equal(t, uint64(9), o.Seed)
	assert.Equal(t, 2, o.Aircraft.MissileCount)
	assert.Equal(t, 15000.0, o.Aircraft.RadarRadius)
	assert.Equal(t, 800.0, o.Missile.Speed)
	assert.True(t, o.Home.Attack)
	assert.Equal(t, "carrier", o.Sides[core.Blue].HomeName)
	assert.Equal(t, []string{"viper", "cobra"}, o.Sides[core.Blue].Callsigns)
	assert.Equal(t, []string{"red_1"}, o.Sides[core.Red].Callsigns)
	require.NoError(t, o.Validate())
}

func TestGetStorageConfig(t *testing.T) {
	tests := []struct {
		name string
		body string
		want StorageConfig
	}{
		{
			name: "defaults",
			body: `{}`,
			want: StorageConfig{
				Type:      "memory",
				Memory:    MemoryConfig{OutputDir: "./recordings", CompressOutput: true},
				SQLite:    SQLiteConfig{DumpInterval: 3 * time.Minute, OutputDir: "./recordings"},
				Websocket: WebsocketConfig{URL: "ws://localhost:5000/api/v1/stream"},
			},
		},
		{
			name: "override",
			body: `{
				"storage": {
					"type": "sqlite",
					"memory": { "outputDir": "/tmp/out", "compressOutput": false },
					"sqlite": { "dumpInterval": "10m", "outputDir": "/tmp/db" },
					"websocket": { "url": "ws://replay:9000/stream", "secret": "k" }
				}
			}`,
			want: StorageConfig{
				Type:      "sqlite",
				Memory:    MemoryConfig{OutputDir: "/tmp/out", CompressOutput: false},
				SQLite:    SQLiteConfig{DumpInterval: 10 * time.Minute, OutputDir: "/tmp/db"},
				Websocket: WebsocketConfig{URL: "ws://replay:9000/stream", Secret: "k"},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Cleanup(viper.Reset)
			require.NoError(t, Load(writeConfig(t, tt.body)))
			assert.Equal(t, tt.want, GetStorageConfig())
		})
	}
}

func TestStorageConfigTypes(t *testing.T) {
	assert.Equal(t, []string{"memory"}, StorageConfig{Type: "memory"}.Types())
	assert.Equal(t, []string{"memory", "websocket"}, StorageConfig{Type: " memory, websocket ,"}.Types())
	assert.Nil(t, StorageConfig{}.Types())
}

func TestGetOTelConfig(t *testing.T) {
	t.Run("defaults", func(t *testing.T) {
		t.Cleanup(viper.Reset)
		require.NoError(t, Load(writeConfig(t, `{}`)))

		cfg := GetOTelConfig()
		assert.Equal(t, false, cfg.Enabled)
		assert.Equal(t, "dogfight", cfg.ServiceName)
		assert.Equal(t, 5*time.Second, cfg.BatchTimeout)
		assert.Equal(t, "", cfg.Endpoint)
		assert.Equal(t, true, cfg.Insecure)
	})

	t.Run("override", func(t *testing.T) {
		t.Cleanup(viper.Reset)
		require.NoError(t, Load(writeConfig(t, `{
			"otel": {
				"enabled": true,
				"serviceName": "my-service",
				"batchTimeout": "30s",
				"endpoint": "localhost:4317",
				"insecure": false
			}
		}`)))

		oc := GetOTelConfig()
		assert.Equal(t, true, oc.Enabled)
		assert.Equal(t, "my-service", oc.ServiceName)
		assert.Equal(t, 30*time.Second, oc.BatchTimeout)
		assert.Equal(t, "localhost:4317", oc.Endpoint)
		assert.Equal(t, false, oc.Insecure)
	})
}

func TestGetDBConfig(t *testing.T) {
	t.Cleanup(viper.Reset)
	require.NoError(t, Load(writeConfig(t, `{"db": {"host": "db.internal", "password": "s3cret"}}`)))

	dc := GetDBConfig()
	assert.Equal(t, "db.internal", dc.Host)
	assert.Equal(t, "5432", dc.Port)
	assert.Equal(t, "host=db.internal port=5432 user=postgres password=s3cret dbname=dogfight sslmode=disable", dc.DSN())
}

func TestGetInfluxConfig(t *testing.T) {
	t.Cleanup(viper.Reset)
	require.NoError(t, Load(writeConfig(t, `{"influx": {"enabled": true, "host": "metrics", "protocol": "https"}}`)))

	ic := GetInfluxConfig()
	assert.True(t, ic.Enabled)
	assert.Equal(t, "https://metrics:8086", ic.URL())
	assert.Equal(t, "dogfight-metrics", ic.Org)
	assert.Equal(t, "episodes", ic.Bucket)
}

func TestGetRunnerConfig(t *testing.T) {
	t.Cleanup(viper.Reset)
	require.NoError(t, Load(writeConfig(t, `{
		"runner": {
			"episodes": 8,
			"parallel": 0,
			"frameInterval": 5,
			"policy": { "blue": "idle" },
			"monitorInterval": "1s"
		}
	}`)))

	rc := GetRunnerConfig()
	assert.Equal(t, 8, rc.Episodes)
	assert.Equal(t, 1, rc.Parallel, "parallel is floored at 1")
	assert.Equal(t, 5, rc.FrameInterval)
	assert.Equal(t, 10, rc.DecisionTicks)
	assert.Equal(t, [2]string{"scripted", "idle"}, rc.Policies)
	assert.Equal(t, time.Second, rc.MonitorInterval)
	assert.Equal(t, "Sim", rc.Tag)
}

func TestGetRewardConfig(t *testing.T) {
	t.Cleanup(viper.Reset)
	require.NoError(t, Load(writeConfig(t, `{"reward": {"kill": 0.25}}`)))

	rc := GetRewardConfig()
	assert.Equal(t, 1.0, rc.Win)
	assert.Equal(t, -1.0, rc.Lose)
	assert.Equal(t, 0.0, rc.Draw)
	assert.Equal(t, 0.001, rc.TimePenalty)
	assert.Equal(t, 0.25, rc.Kill)
}

func TestGetMapOrigin(t *testing.T) {
	t.Cleanup(viper.Reset)
	require.NoError(t, Load(writeConfig(t, `{"map": {"originLon": 13.4, "originLat": 52.5}}`)))

	lon, lat := GetMapOrigin()
	assert.Equal(t, 13.4, lon)
	assert.Equal(t, 52.5, lat)
}
