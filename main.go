// Command mailscan analyzes the textual content of a mail message for
// anti-abuse scoring: it splits the message into MIME parts, renders and
// normalizes the text parts, detects script/language, hashes words, compares
// alternative parts for near-duplicates, reconciles the Received chain and
// computes the message digest.
package main

import (
	"context"
	"encoding/hex"
	"encoding/json"
	"flag"
	"fmt"
	"net"
	"os"
	"time"

	"github.com/mailscan/mailscan/config"
	"github.com/mailscan/mailscan/mlog"
	"github.com/mailscan/mailscan/resultdb"
	"github.com/mailscan/mailscan/scan"
	"github.com/mailscan/mailscan/textpart"
)

var xlog = mlog.New("main")

var commands = []struct {
	cmd  string
	fn   func(c *cmd)
	help string
}{
	{"scan", cmdScan, "analyze a message file and print the result as JSON"},
	{"example-config", cmdExampleConfig, "print an example config file"},
	{"loglevels", cmdLoglevels, "print the log levels a config file sets"},
	{"gtube", cmdGtube, "print the test signature that forces a reject verdict"},
}

type cmd struct {
	flag *flag.FlagSet
	args []string
}

func (c *cmd) Parse() []string {
	c.flag.Parse(c.args)
	return c.flag.Args()
}

func (c *cmd) Usage() {
	c.flag.Usage()
	os.Exit(2)
}

func usage() {
	fmt.Fprintln(os.Stderr, "usage: mailscan command [flags] [args]")
	for _, c := range commands {
		fmt.Fprintf(os.Stderr, "\t%s\t%s\n", c.cmd, c.help)
	}
	os.Exit(2)
}

func xcheckf(err error, format string, args ...any) {
	if err != nil {
		xlog.Fatalx(fmt.Sprintf(format, args...), err)
	}
}

func main() {
	flag.Usage = usage
	flag.Parse()
	args := flag.Args()
	if len(args) == 0 {
		usage()
	}
	for _, command := range commands {
		if command.cmd != args[0] {
			continue
		}
		c := &cmd{flag: flag.NewFlagSet("mailscan "+command.cmd, flag.ExitOnError), args: args[1:]}
		command.fn(c)
		return
	}
	usage()
}

func cmdExampleConfig(c *cmd) {
	if len(c.Parse()) != 0 {
		c.Usage()
	}
	err := config.Describe(os.Stdout)
	xcheckf(err, "describing config")
}

func cmdLoglevels(c *cmd) {
	var configPath string
	c.flag.StringVar(&configPath, "config", "", "path to config file in sconf format")
	if len(c.Parse()) != 0 {
		c.Usage()
	}

	cfg := config.Defaults()
	if configPath != "" {
		var err error
		cfg, err = config.Load(configPath)
		xcheckf(err, "loading config")
	}
	fmt.Printf("(default): %s\n", cfg.LogLevel)
	for pkg, level := range cfg.PackageLogLevels {
		fmt.Printf("%s: %s\n", pkg, level)
	}
}

func cmdGtube(c *cmd) {
	if len(c.Parse()) != 0 {
		c.Usage()
	}
	fmt.Println(textpart.GtubePattern())
}

// scanResult is what cmdScan prints, a JSON-friendly view of the task.
type scanResult struct {
	MessageID     string
	QueueID       string
	Subject       string
	Action        string
	Score         float64
	SMTPMessage   string   `json:",omitempty"`
	Symbols       []string `json:",omitempty"`
	GtubeFound    bool
	Digest        string
	PartsDistance *float64 `json:",omitempty"`
	TotalWords    *int     `json:",omitempty"`
	URLs          []string `json:",omitempty"`
	Addresses     []string `json:",omitempty"`
	FromAddr      string   `json:",omitempty"`
	Hostname      string   `json:",omitempty"`
	TextParts     []scanResultPart
	ReceivedHops  []scanResultHop
	CachedVerdict bool
}

type scanResultPart struct {
	HTML     bool
	UTF8     bool
	Empty    bool
	Script   string `json:",omitempty"`
	Language string `json:",omitempty"`
	LangCode string `json:",omitempty"`
	Lines    int
	Words    int
}

type scanResultHop struct {
	FromHostname string `json:",omitempty"`
	FromIP       string `json:",omitempty"`
	RealHostname string `json:",omitempty"`
	RealIP       string `json:",omitempty"`
	ByHostname   string `json:",omitempty"`
	Synthetic    bool
}

func cmdScan(c *cmd) {
	var configPath, ip, hostname string
	c.flag.StringVar(&configPath, "config", "", "path to config file in sconf format")
	c.flag.StringVar(&ip, "ip", "", "transport-observed peer IP the message was received from")
	c.flag.StringVar(&hostname, "hostname", "", "resolved hostname of the peer IP")
	args := c.Parse()
	if len(args) != 1 {
		c.Usage()
	}

	cfg := config.Defaults()
	if configPath != "" {
		var err error
		cfg, err = config.Load(configPath)
		xcheckf(err, "loading config")
	}

	msg, err := os.ReadFile(args[0])
	xcheckf(err, "reading message file")

	task := &scan.Task{Hostname: hostname}
	if ip != "" {
		task.FromAddr = net.ParseIP(ip)
		if task.FromAddr == nil {
			xlog.Fatal("invalid ip", mlog.Field("ip", ip))
		}
	}

	ctx := context.Background()
	err = scan.Process(ctx, task, msg, cfg)
	xcheckf(err, "analyzing message")

	r := scanResult{
		MessageID:     task.MessageID,
		QueueID:       task.QueueID,
		Subject:       task.Subject,
		Action:        task.Action,
		Score:         task.Score,
		SMTPMessage:   task.SMTPMessage,
		GtubeFound:    task.GtubeFound,
		Digest:        hex.EncodeToString(task.Digest[:]),
		PartsDistance: task.PartsDistance,
		TotalWords:    task.TotalWords,
		URLs:          task.URLs,
		Addresses:     task.Addresses,
		Hostname:      task.Hostname,
	}
	if task.FromAddr != nil {
		r.FromAddr = task.FromAddr.String()
	}
	for _, s := range task.Symbols {
		r.Symbols = append(r.Symbols, s.Name)
	}
	for _, tp := range task.TextParts {
		r.TextParts = append(r.TextParts, scanResultPart{
			HTML:     tp.HTML,
			UTF8:     tp.UTF8,
			Empty:    tp.Empty,
			Script:   tp.Script,
			Language: tp.Language,
			LangCode: tp.LangCode,
			Lines:    tp.NumLines,
			Words:    len(tp.Words),
		})
	}
	for _, hop := range task.Received {
		r.ReceivedHops = append(r.ReceivedHops, scanResultHop{
			FromHostname: hop.FromHostname,
			FromIP:       hop.FromIP,
			RealHostname: hop.RealHostname,
			RealIP:       hop.RealIP,
			ByHostname:   hop.ByHostname,
			Synthetic:    hop.Synthetic,
		})
	}

	if cfg.ResultDBPath != "" {
		db, err := resultdb.Open(ctx, xlog, cfg.ResultDBPath)
		xcheckf(err, "opening result database")
		defer func() {
			err := db.Close()
			xlog.Check(err, "closing result database")
		}()

		cached, err := db.Lookup(ctx, r.Digest)
		xcheckf(err, "looking up result")
		if cached != nil {
			r.CachedVerdict = true
		} else {
			stored := resultdb.Result{
				Digest:      r.Digest,
				Score:       task.Score,
				Action:      task.Action,
				SMTPMessage: task.SMTPMessage,
				GtubeFound:  task.GtubeFound,
				Scanned:     time.Now(),
			}
			if task.PartsDistance != nil {
				stored.PartsDistance = *task.PartsDistance
				stored.TotalWords = *task.TotalWords
			}
			err = db.Store(ctx, stored)
			xcheckf(err, "storing result")
		}
	}

	out, err := json.MarshalIndent(r, "", "\t")
	xcheckf(err, "marshal result")
	fmt.Println(string(out))
}
