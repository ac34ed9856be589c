package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"time"

	"github.com/spf13/viper"
)

const (
	CONFIG_FILE = "app_config.json"
	ENV_PREFIX  = "MAFIA"
)

type AppConfig struct {
	Host     string     `mapstructure:"host"`
	Port     int        `mapstructure:"port"`
	LogLevel string     `mapstructure:"log_level"`
	Game     GameConfig `mapstructure:"game"`
}

// GameConfig 是引擎规则和开局参数的来源
type GameConfig struct {
	NightDuration time.Duration `mapstructure:"night_duration"`
	DayDuration   time.Duration `mapstructure:"day_duration"`
	// 为 0 时主持人等待阶段不设超时
	WaitDuration time.Duration `mapstructure:"wait_duration"`

	NightTiePolicy string `mapstructure:"night_tie_policy"`
	DayTiePolicy   string `mapstructure:"day_tie_policy"`

	MafiaWinsAtParity bool `mapstructure:"mafia_wins_at_parity"`
	EndWhenAllActed   bool `mapstructure:"end_when_all_acted"`

	// 为 0 时使用随机种子
	Seed uint64 `mapstructure:"seed"`

	MinPlayers int `mapstructure:"min_players"`
	MaxPlayers int `mapstructure:"max_players"`

	Roles          map[string]int `mapstructure:"roles"`
	GamemasterMode bool           `mapstructure:"gamemaster_mode"`

	// 演示对局使用的玩家名单
	Players []string `mapstructure:"players"`
}

var cfg *AppConfig

func GetConfig() *AppConfig {
	if cfg == nil {
		cfg = InitConfig()
	}

	return cfg
}

func InitConfig() *AppConfig {
	config, err := LoadConfig(CONFIG_FILE)
	if err != nil {
		panic(fmt.Errorf("加载配置失败: %w", err))
	}

	return config
}

// LoadConfig 读取配置文件，文件不存在时使用默认值，环境变量优先级最高
func LoadConfig(path string) (*AppConfig, error) {
	v := viper.New()

	setDefaults(v)

	v.SetEnvPrefix(ENV_PREFIX)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetConfigFile(path)
	v.SetConfigType("json")

	if err := v.ReadInConfig(); err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("读取配置文件 %s 失败: %w", path, err)
		}
	}

	var config AppConfig

	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("解析配置失败: %w", err)
	}

	return &config, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("host", "0.0.0.0")
	v.SetDefault("port", 8080)
	v.SetDefault("log_level", "info")

	v.SetDefault("game.night_duration", 60*time.Second)
	v.SetDefault("game.day_duration", 120*time.Second)
	v.SetDefault("game.wait_duration", 0)
	v.SetDefault("game.night_tie_policy", "none")
	v.SetDefault("game.day_tie_policy", "none")
	v.SetDefault("game.mafia_wins_at_parity", true)
	v.SetDefault("game.end_when_all_acted", true)
	v.SetDefault("game.seed", 0)
	v.SetDefault("game.min_players", 3)
	v.SetDefault("game.max_players", 40)
	v.SetDefault("game.roles", map[string]int{"mafia": 1})
	v.SetDefault("game.gamemaster_mode", false)
}
