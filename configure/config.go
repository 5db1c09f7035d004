package configure

import (
	"bytes"
	"encoding/json"
	"strings"

	nested "github.com/antonfisher/nested-logrus-formatter"
	"github.com/kr/pretty"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

type ServerCfg struct {
	Level           string `mapstructure:"level"`
	ConfigFile      string `mapstructure:"config_file"`
	ListenerNetwork string `mapstructure:"listener_network"`
	ListenerAddress string `mapstructure:"listener_address"`
	RedisURI        string `mapstructure:"redis_uri"`
	MongoURI        string `mapstructure:"mongo_uri"`
	MongoDB         string `mapstructure:"mongo_db"`
	JwtSecret       string `mapstructure:"jwt_secret"`
	StatusCacheTTL  int    `mapstructure:"status_cache_ttl"`
	ExitCode        int    `mapstructure:"exit_code"`
}

// default config
var defaultConf = ServerCfg{
	ConfigFile:      "config.yaml",
	ListenerNetwork: "tcp",
	ListenerAddress: ":3000",
	StatusCacheTTL:  15,
}

var Config = viper.New()

func initLog() {
	if l, err := log.ParseLevel(Config.GetString("level")); err == nil {
		log.SetLevel(l)
	}
	log.SetFormatter(&nested.Formatter{
		HideKeys:    true,
		FieldsOrder: []string{"component", "category"},
	})
}

func checkErr(err error) {
	if err != nil {
		panic(err)
	}
}

func init() {
	// Default config
	b, _ := json.Marshal(defaultConf)
	defaultConfig := bytes.NewReader(b)
	viper.SetConfigType("json")
	checkErr(viper.ReadConfig(defaultConfig))
	checkErr(Config.MergeConfigMap(viper.AllSettings()))

	// Flags
	pflag.String("config_file", "config.yaml", "configure filename")
	pflag.String("level", "info", "Log level")
	pflag.String("listener_network", "tcp", "Network for the http listener.")
	pflag.String("listener_address", ":3000", "Address for the http listener.")
	pflag.String("redis_uri", "", "Address for the redis server.")
	pflag.String("mongo_uri", "", "Address for the mongodb server.")
	pflag.String("mongo_db", "", "Database for the mongodb connection.")
	pflag.String("jwt_secret", "", "Secret used to validate admin tokens.")
	pflag.Int("status_cache_ttl", 15, "Election status cache lifetime in seconds.")
	pflag.Int("exit_code", 0, "Status code for successful and graceful shutdown, [0-125].")
	pflag.Parse()
	checkErr(Config.BindPFlags(pflag.CommandLine))

	// File
	Config.SetConfigFile(Config.GetString("config_file"))
	Config.AddConfigPath(".")
	err := Config.ReadInConfig()
	if err != nil {
		log.Warning(err)
		log.Info("Using default config")
	} else {
		checkErr(Config.MergeInConfig())
	}

	// Environment
	replacer := strings.NewReplacer(".", "_")
	Config.SetEnvKeyReplacer(replacer)
	Config.AllowEmptyEnv(true)
	Config.AutomaticEnv()

	// Log
	initLog()

	// Print final config
	c := ServerCfg{}
	checkErr(Config.Unmarshal(&c))
	log.Debugf("Current configurations: \n%# v", pretty.Formatter(c))
}
