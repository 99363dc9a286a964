// Package config holds the configuration for mailscan, read from a file in
// sconf format.
package config

import (
	"fmt"
	"io"

	"github.com/mjl-/sconf"

	"github.com/mailscan/mailscan/mlog"
)

// Config is the parsed form of the mailscan configuration file.
type Config struct {
	LogLevel             string            `sconf:"optional" sconf-doc:"Default log level, one of: error, info, debug. Default: error. NOTE: This config file is in 'sconf' format. Indent with tabs. Comments must be on their own line, they don't end a line. Do not escape or quote strings. Details: https://pkg.go.dev/github.com/mjl-/sconf."`
	PackageLogLevels     map[string]string `sconf:"optional" sconf-doc:"Overrides of log level per package (e.g. message, textpart, received, scan)."`
	CheckTextAttachments bool              `sconf:"optional" sconf-doc:"Also analyze text inside parts with an attachment content-disposition. By default such parts are skipped."`
	AllowRawInput        bool              `sconf:"optional" sconf-doc:"If the input cannot be parsed as a MIME message, fall back to treating the whole input as a single plain text part instead of failing the scan."`
	IgnoreReceived       bool              `sconf:"optional" sconf-doc:"Never trust the IP claimed by the first Received header; the hop closest to us is always replaced by one synthesized from the connecting address."`
	RejectScore          float64           `sconf-doc:"Score assigned to a message when a terminal verdict (such as the gtube test signature) forces a reject. E.g. 15."`
	ResultDBPath         string            `sconf:"optional" sconf-doc:"Path to the scan result database. If set, scan verdicts are stored keyed by message digest and identical messages reuse the stored verdict."`
}

// Defaults returns a config with the values used when no config file is given.
func Defaults() Config {
	return Config{
		LogLevel:    "error",
		RejectScore: 15,
	}
}

// Load reads the configuration from path and applies the log levels.
func Load(path string) (Config, error) {
	c := Defaults()
	if err := sconf.ParseFile(path, &c); err != nil {
		return c, fmt.Errorf("parsing config file %s: %w", path, err)
	}
	if err := ApplyLogLevels(c); err != nil {
		return c, err
	}
	return c, nil
}

// ApplyLogLevels sets the global mlog configuration from c.
func ApplyLogLevels(c Config) error {
	levels := map[string]mlog.Level{}
	if c.LogLevel != "" {
		l, ok := mlog.Levels[c.LogLevel]
		if !ok {
			return fmt.Errorf("unknown log level %q", c.LogLevel)
		}
		levels[""] = l
	}
	for pkg, s := range c.PackageLogLevels {
		l, ok := mlog.Levels[s]
		if !ok {
			return fmt.Errorf("unknown log level %q for package %q", s, pkg)
		}
		levels[pkg] = l
	}
	mlog.SetConfig(levels)
	return nil
}

// Describe writes an example config file, with field documentation, to w.
func Describe(w io.Writer) error {
	c := Defaults()
	return sconf.Describe(w, &c)
}
