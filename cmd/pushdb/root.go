package main

import (
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/andreyvit/pushdb"
)

var (
	db *pushdb.DB

	rootCmd = &cobra.Command{
		Use:   "pushdb",
		Short: "Inspect and edit pushdb databases",
		Long: `pushdb opens a database file and reads or writes its stores and indexes.

Every flag can also be set via an environment variable named PUSHDB_<FLAG>
(e.g. PUSHDB_DB=data/app.db), or in .env / .env.local.

Keys are given as JSON (42, "abc", ["a", 1]); anything that is not valid
JSON is taken as a string.`,
		SilenceUsage:       true,
		PersistentPreRunE:  openCommandDB,
		PersistentPostRunE: closeCommandDB,
	}
)

func init() {
	cobra.OnInitialize(initConfig)
	setupDBFlags(rootCmd)

	rootCmd.AddCommand(dumpCmd)
	rootCmd.AddCommand(getCmd)
	rootCmd.AddCommand(putCmd)
	rootCmd.AddCommand(deleteCmd)
	rootCmd.AddCommand(scanCmd)
	rootCmd.AddCommand(indexCmd)
	rootCmd.AddCommand(statsCmd)
}

func openCommandDB(cmd *cobra.Command, _ []string) error {
	if err := closeCommandDB(cmd, nil); err != nil {
		return err
	}
	if err := viper.BindPFlags(cmd.Flags()); err != nil {
		return err
	}
	var err error
	db, err = openDB()
	return err
}

// closeCommandDB also runs before opening, since cobra skips post-run hooks
// when a command fails.
func closeCommandDB(cmd *cobra.Command, _ []string) error {
	if db == nil {
		return nil
	}
	err := db.Close()
	db = nil
	return err
}
