package main

import (
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/andreyvit/pushdb"
)

const wrap = 50

// wrapString wraps flag help at wrap characters.
func wrapString(text string) string {
	var lines []string
	var line strings.Builder
	for _, word := range strings.Fields(text) {
		if line.Len() > 0 && line.Len()+1+len(word) > wrap {
			lines = append(lines, line.String())
			line.Reset()
		}
		if line.Len() > 0 {
			line.WriteByte(' ')
		}
		line.WriteString(word)
	}
	if line.Len() > 0 {
		lines = append(lines, line.String())
	}
	return strings.Join(lines, "\n")
}

func setupDBFlags(cmd *cobra.Command) {
	key := "db"
	cmd.PersistentFlags().String(key, "pushdb.db", wrapString("Path of the Bolt file or LevelDB directory"))

	key = "engine"
	cmd.PersistentFlags().String(key, "bolt", wrapString("Storage engine (bolt, leveldb)"))

	key = "encoding"
	cmd.PersistentFlags().String(key, "msgpack", wrapString("Encoding of written values (msgpack, json). Stored values are always decoded according to their own header"))

	key = "compression"
	cmd.PersistentFlags().String(key, "none", wrapString("Compression of written values (none, s2, lz4, zstd)"))

	key = "log-level"
	cmd.PersistentFlags().String(key, "warn", wrapString("Level at which logs are written to stderr (debug, info, warn, error)"))

	key = "verbose"
	cmd.PersistentFlags().Bool(key, false, wrapString("Log every write and scan at debug level"))
}

// initConfig loads .env files and makes every flag settable as PUSHDB_<FLAG>.
func initConfig() {
	_ = godotenv.Load(".env")
	_ = godotenv.Load(".env.local")

	viper.SetEnvPrefix("pushdb")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv()
}

func newLogger() (*slog.Logger, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(viper.GetString("log-level"))); err != nil {
		return nil, fmt.Errorf("invalid log level %q", viper.GetString("log-level"))
	}
	if viper.GetBool("verbose") {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})), nil
}

func dbOptions() (pushdb.Options, error) {
	var opt pushdb.Options
	var err error
	opt.Logger, err = newLogger()
	if err != nil {
		return opt, err
	}
	opt.Verbose = viper.GetBool("verbose")
	opt.Encoding, err = pushdb.ParseEncoding(viper.GetString("encoding"))
	if err != nil {
		return opt, err
	}
	opt.Compression, err = pushdb.ParseCompression(viper.GetString("compression"))
	if err != nil {
		return opt, err
	}
	return opt, nil
}

// openDB opens the database named by the configuration.
func openDB() (*pushdb.DB, error) {
	opt, err := dbOptions()
	if err != nil {
		return nil, err
	}
	path := viper.GetString("db")
	switch engine := viper.GetString("engine"); engine {
	case "bolt":
		return pushdb.OpenBolt(path, pushdb.BoltOptions{}, opt)
	case "leveldb":
		return pushdb.OpenLevelDB(path, pushdb.LevelDBOptions{}, opt)
	default:
		return nil, fmt.Errorf("invalid engine %s (expected bolt or leveldb)", engine)
	}
}
