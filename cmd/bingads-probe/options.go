package main

// Options are the command line flags of the probe.
type Options struct {
	ConfigFile string `short:"c" long:"config" description:"JSON client configuration file; environment variables override it"`
	EnvFile    string `long:"env-file" description:"dotenv file loaded before reading the environment" default:".env"`
	Endpoint   string `short:"e" long:"endpoint" description:"CustomerManagement endpoint URL override"`
	UserID     int64  `short:"u" long:"user-id" description:"user to fetch; the signed-in user when 0"`
	Workers    int    `short:"w" long:"workers" description:"concurrent callers" default:"1"`
	Iterations int    `short:"n" long:"iterations" description:"calls per caller" default:"1"`
	Trace      bool   `short:"t" long:"trace" description:"print every log entry as a one-line trace instead of structured logs"`
}
