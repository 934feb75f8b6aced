package config

import (
	"fmt"
	"time"

	"github.com/spf13/viper"

	"github.com/chaos-io/tryon/tryon"
)

type Config struct {
	Server  ServerConfig  `mapstructure:"server"`
	Redis   RedisConfig   `mapstructure:"redis"`
	Upload  UploadConfig  `mapstructure:"upload"`
	Fetch   FetchConfig   `mapstructure:"fetch"`
	Session SessionConfig `mapstructure:"session"`
	Engine  EngineConfig  `mapstructure:"engine"`
}

type ServerConfig struct {
	Port         string        `mapstructure:"port"`
	Mode         string        `mapstructure:"mode"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
	AllowOrigin  string        `mapstructure:"allow_origin"`
}

type RedisConfig struct {
	Enabled  bool          `mapstructure:"enabled"`
	Addr     string        `mapstructure:"addr"`
	Password string        `mapstructure:"password"`
	DB       int           `mapstructure:"db"`
	TTL      time.Duration `mapstructure:"ttl"`
}

type UploadConfig struct {
	MaxSize      int64    `mapstructure:"max_size"`
	AllowedTypes []string `mapstructure:"allowed_types"`
}

type FetchConfig struct {
	Timeout  time.Duration `mapstructure:"timeout"`
	MaxBytes int64         `mapstructure:"max_bytes"`
}

type SessionConfig struct {
	TTL       time.Duration `mapstructure:"ttl"`
	SweepSpec string        `mapstructure:"sweep_spec"`
}

type EngineConfig struct {
	Opacity      float64 `mapstructure:"opacity"`
	MaxBaseSize  int     `mapstructure:"max_base_size"`
	MinSkinAlpha uint8   `mapstructure:"min_skin_alpha"`
	Interpolator string  `mapstructure:"interpolator"`
	CacheSize    int     `mapstructure:"cache_size"`
	// MaxPixels 照片和商品图按图片头检查的像素上限，0 表示不限制
	MaxPixels int `mapstructure:"max_pixels"`
	// Skin 肤色判定：rgb 阈值规则，hsv 使用 HSV 区间
	Skin string    `mapstructure:"skin"`
	HSV  HSVConfig `mapstructure:"hsv"`
	// Remover 去背景方式：white 本地白底规则，remote 调用抠图服务
	Remover    string `mapstructure:"remover"`
	RemoverURL string `mapstructure:"remover_url"`
	// Accessory 配饰区域相对 torso 的比例，留空使用默认值
	Accessory *tryon.Band `mapstructure:"accessory"`
}

// HSVConfig hue 单位为度，饱和度和亮度在 [0,1]
type HSVConfig struct {
	HueMin float64 `mapstructure:"hue_min"`
	HueMax float64 `mapstructure:"hue_max"`
	SatMin float64 `mapstructure:"sat_min"`
	SatMax float64 `mapstructure:"sat_max"`
	ValMin float64 `mapstructure:"val_min"`
}

// Load 从 YAML 文件加载配置
func Load(configPath string) (*Config, error) {
	v := viper.New()
	v.SetConfigFile(configPath)
	v.SetConfigType("yaml")

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	return &cfg, nil
}

// New 使用默认配置路径加载配置，失败时返回默认配置
func New() *Config {
	cfg, err := Load("config.yaml")
	if err != nil {
		return Default()
	}
	return cfg
}

func setDefaults(v *viper.Viper) {
	d := Default()

	v.SetDefault("server.port", d.Server.Port)
	v.SetDefault("server.mode", d.Server.Mode)
	v.SetDefault("server.read_timeout", d.Server.ReadTimeout)
	v.SetDefault("server.write_timeout", d.Server.WriteTimeout)
	v.SetDefault("server.allow_origin", d.Server.AllowOrigin)

	v.SetDefault("redis.enabled", d.Redis.Enabled)
	v.SetDefault("redis.addr", d.Redis.Addr)
	v.SetDefault("redis.password", d.Redis.Password)
	v.SetDefault("redis.db", d.Redis.DB)
	v.SetDefault("redis.ttl", d.Redis.TTL)

	v.SetDefault("upload.max_size", d.Upload.MaxSize)
	v.SetDefault("upload.allowed_types", d.Upload.AllowedTypes)

	v.SetDefault("fetch.timeout", d.Fetch.Timeout)
	v.SetDefault("fetch.max_bytes", d.Fetch.MaxBytes)

	v.SetDefault("session.ttl", d.Session.TTL)
	v.SetDefault("session.sweep_spec", d.Session.SweepSpec)

	v.SetDefault("engine.opacity", d.Engine.Opacity)
	v.SetDefault("engine.max_base_size", d.Engine.MaxBaseSize)
	v.SetDefault("engine.min_skin_alpha", d.Engine.MinSkinAlpha)
	v.SetDefault("engine.interpolator", d.Engine.Interpolator)
	v.SetDefault("engine.cache_size", d.Engine.CacheSize)
	v.SetDefault("engine.max_pixels", d.Engine.MaxPixels)
	v.SetDefault("engine.skin", d.Engine.Skin)
	v.SetDefault("engine.hsv.hue_min", d.Engine.HSV.HueMin)
	v.SetDefault("engine.hsv.hue_max", d.Engine.HSV.HueMax)
	v.SetDefault("engine.hsv.sat_min", d.Engine.HSV.SatMin)
	v.SetDefault("engine.hsv.sat_max", d.Engine.HSV.SatMax)
	v.SetDefault("engine.hsv.val_min", d.Engine.HSV.ValMin)
	v.SetDefault("engine.remover", d.Engine.Remover)
	v.SetDefault("engine.remover_url", d.Engine.RemoverURL)
}

func Default() *Config {
	engine := tryon.DefaultOptions()
	return &Config{
		Server: ServerConfig{
			Port:         ":8080",
			Mode:         "debug",
			ReadTimeout:  30 * time.Second,
			WriteTimeout: 30 * time.Second,
			AllowOrigin:  "*",
		},
		Redis: RedisConfig{
			Enabled:  false,
			Addr:     "localhost:6379",
			Password: "",
			DB:       0,
			TTL:      24 * time.Hour,
		},
		Upload: UploadConfig{
			MaxSize:      10 * 1024 * 1024,
			AllowedTypes: []string{"image/jpeg", "image/png", "image/jpg", "image/webp"},
		},
		Fetch: FetchConfig{
			Timeout:  15 * time.Second,
			MaxBytes: 20 * 1024 * 1024,
		},
		Session: SessionConfig{
			TTL:       30 * time.Minute,
			SweepSpec: "@every 1m",
		},
		Engine: EngineConfig{
			Opacity:      engine.Opacity,
			MaxBaseSize:  engine.MaxBaseSize,
			MinSkinAlpha: engine.MinSkinAlpha,
			Interpolator: "catmullrom",
			CacheSize:    256,
			MaxPixels:    engine.MaxPixels,
			Skin:         "rgb",
			HSV:          HSVConfig{HueMin: 0, HueMax: 50, SatMin: 0.2, SatMax: 0.7, ValMin: 0.35},
			Remover:      "white",
		},
	}
}

// EngineOptions 把配置映射到引擎参数，未配置的阈值保持默认
func (c *Config) EngineOptions() (tryon.Options, error) {
	opts := tryon.DefaultOptions()
	opts.Opacity = c.Engine.Opacity
	opts.MaxBaseSize = c.Engine.MaxBaseSize
	opts.MinSkinAlpha = c.Engine.MinSkinAlpha
	opts.MaxPixels = c.Engine.MaxPixels
	if c.Engine.Accessory != nil {
		opts.Accessory = *c.Engine.Accessory
	}

	switch c.Engine.Remover {
	case "", "white":
	case "remote":
		if c.Engine.RemoverURL == "" {
			return tryon.Options{}, fmt.Errorf("invalid engine config: remover_url is required for remote remover")
		}
	default:
		return tryon.Options{}, fmt.Errorf("invalid engine config: unknown remover %q", c.Engine.Remover)
	}

	switch c.Engine.Skin {
	case "", "rgb":
	case "hsv":
		h := c.Engine.HSV
		if h.HueMin > h.HueMax || h.SatMin > h.SatMax {
			return tryon.Options{}, fmt.Errorf("invalid engine config: empty hsv range %+v", h)
		}
		opts.Skin = tryon.HSVSkinPredicate(h.HueMin, h.HueMax, h.SatMin, h.SatMax, h.ValMin)
	default:
		return tryon.Options{}, fmt.Errorf("invalid engine config: unknown skin predicate %q", c.Engine.Skin)
	}

	interp, err := tryon.InterpolatorByName(c.Engine.Interpolator)
	if err != nil {
		return tryon.Options{}, err
	}
	opts.Interpolator = interp

	if err := opts.Validate(); err != nil {
		return tryon.Options{}, fmt.Errorf("invalid engine config: %w", err)
	}
	return opts, nil
}
