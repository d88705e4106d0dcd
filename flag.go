package main

import (
	"flag"
	"fmt"
	"os"
)

var (
	hf         bool
	configPath string
	configSet  bool
	logLevel   string
	format     string
	outDir     string
)

func InitFlag() {
	flag.BoolVar(&hf, "h", false, "this help")
	flag.StringVar(&configPath, "c", "./conf/conf.toml", "set config `file`")
	flag.StringVar(&logLevel, "l", "info", "set log level")
	flag.StringVar(&format, "f", "", "output `format`: text, json, yaml or geojson")
	flag.StringVar(&outDir, "o", "", "write one file per tile under `dir`")
	flag.Usage = usage
	flag.Parse()

	if hf {
		flag.Usage()
		os.Exit(0)
	}
	flag.Visit(func(f *flag.Flag) {
		if f.Name == "c" {
			configSet = true
		}
	})
}

// applyFlags lets command line values override the config file.
func applyFlags(c *Conf) {
	if flag.NArg() > 0 {
		c.Input.Path = flag.Arg(0)
	}
	if format != "" {
		c.Output.Format = format
	}
	if outDir != "" {
		c.Output.Directory = outDir
	}
}

func usage() {
	fmt.Fprintf(os.Stderr, `mvtdump version: mvtdump/v0.1.0
Usage: mvtdump [-h] [-c filename] [-l logLevel] [-f format] [-o dir] <mbtiles_file>
`)
	flag.PrintDefaults()
}
