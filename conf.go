package main

import (
	"fmt"
	"os"
	"runtime"

	"github.com/spf13/viper"
)

var conf *Conf

type Conf struct {
	App struct {
		Version string `mapstructure:"version"`
		Title   string `mapstructure:"title"`
	} `mapstructure:"app"`
	Input struct {
		Path    string    `mapstructure:"path"`
		MinZoom int       `mapstructure:"minZoom"`
		MaxZoom int       `mapstructure:"maxZoom"`
		Bounds  []float64 `mapstructure:"bounds"`
	} `mapstructure:"input"`
	Output struct {
		Format         string `mapstructure:"format"`
		Directory      string `mapstructure:"directory"`
		PathTemplate   string `mapstructure:"pathTemplate"`
		LogDir         string `mapstructure:"logDir"`
		OutputTerminal bool   `mapstructure:"outputTerminal"`
		WGS84          bool   `mapstructure:"wgs84"`
		Color          bool   `mapstructure:"color"`
	} `mapstructure:"output"`
	Task struct {
		Workers int `mapstructure:"workers"`
		BufSize int `mapstructure:"bufSize"`
	} `mapstructure:"task"`
	Decode struct {
		StrictCommands  bool `mapstructure:"strictCommands"`
		SkipBadFeatures bool `mapstructure:"skipBadFeatures"`
		SkipBadTiles    bool `mapstructure:"skipBadTiles"`
	} `mapstructure:"decode"`
	BreakPoint struct {
		SaveFilePath string `mapstructure:"saveFilePath"`
	} `mapstructure:"breakPoint"`
}

// InitConf 初始化配置
func InitConf(cfgFile string) {
	if _, err := os.Stat(cfgFile); err == nil {
		viper.SetConfigType("toml")
		viper.SetConfigFile(cfgFile)
		if err := viper.ReadInConfig(); err != nil {
			fmt.Fprintf(os.Stderr, "read config file(%s) error, details: %s\n", viper.ConfigFileUsed(), err)
			os.Exit(1)
		}
	} else if configSet {
		fmt.Fprintf(os.Stderr, "config file(%s) not exist\n", cfgFile)
		os.Exit(1)
	}
	viper.SetEnvPrefix("mvtdump")
	viper.AutomaticEnv() // read in environment variables that match

	// 设置默认值
	viper.SetDefault("app.version", "v 0.1.0")
	viper.SetDefault("app.title", "MVT Dump")
	viper.SetDefault("input.minZoom", ZoomMin)
	viper.SetDefault("input.maxZoom", ZoomMax)
	viper.SetDefault("output.format", TEXT)
	viper.SetDefault("output.pathTemplate", DefaultPathTemplate)
	viper.SetDefault("output.outputTerminal", true)
	viper.SetDefault("output.color", true)
	viper.SetDefault("task.workers", runtime.NumCPU())
	viper.SetDefault("task.bufSize", 64)
	viper.SetDefault("decode.strictCommands", true)
	viper.SetDefault("decode.skipBadFeatures", false)
	viper.SetDefault("decode.skipBadTiles", true)
	viper.SetDefault("breakPoint.saveFilePath", "breakpoint")

	if err := viper.Unmarshal(&conf); err != nil {
		panic("配置文件解析失败")
	}
	applyFlags(conf)
	if conf.Task.Workers < 1 {
		conf.Task.Workers = 1
	}
}
