package main

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/andreyvit/pushdb"
)

var (
	dumpCmd = &cobra.Command{
		Use:   "dump",
		Short: "Print every key of the database in storage order",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			var f pushdb.DumpFlags
			if b, _ := cmd.Flags().GetBool("records"); b {
				f |= pushdb.DumpRecords
			}
			if b, _ := cmd.Flags().GetBool("history"); b {
				f |= pushdb.DumpHistory
			}
			if b, _ := cmd.Flags().GetBool("entries"); b {
				f |= pushdb.DumpIndexEntries
			}
			if f == 0 {
				f = pushdb.DumpAll
			}
			if b, _ := cmd.Flags().GetBool("raw"); b {
				f |= pushdb.DumpRawKeys
			}
			return db.Dump(cmd.OutOrStdout(), f)
		},
	}

	getCmd = &cobra.Command{
		Use:   "get [store] [key]",
		Short: "Print a record as JSON",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			var value any
			if err := db.Store(args[0]).Get(parseKey(args[1]), &value); err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), value)
		},
	}

	putCmd = &cobra.Command{
		Use:   "put [store] [key] [json]",
		Short: "Write a record",
		Long:  "Write a record. No change listeners are registered by this tool, so the previous write's derived entries are removed and none are added.",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			var value any
			if err := json.Unmarshal([]byte(args[2]), &value); err != nil {
				return fmt.Errorf("value must be JSON: %w", err)
			}
			return db.Store(args[0]).Put(cmd.Context(), parseKey(args[1]), value)
		},
	}

	deleteCmd = &cobra.Command{
		Use:   "delete [store] [key]",
		Short: "Delete a record and everything its last write produced",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return db.Store(args[0]).Delete(cmd.Context(), parseKey(args[1]))
		},
	}

	scanCmd = &cobra.Command{
		Use:   "scan [store]",
		Short: "Print the records of a store, one per line",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s := db.Store(args[0])
			reverse, _ := cmd.Flags().GetBool("reverse")
			var rows *pushdb.Rows
			start, _ := cmd.Flags().GetString("start")
			end, _ := cmd.Flags().GetString("end")
			if start != "" || end != "" {
				if end == "" {
					return fmt.Errorf("--end is required with --start")
				}
				var lower any
				if start != "" {
					lower = parseKey(start)
				}
				if reverse {
					rows = s.RangeReversed(lower, parseKey(end))
				} else {
					rows = s.Range(lower, parseKey(end))
				}
			} else if reverse {
				rows = s.AllReversed()
			} else {
				rows = s.All()
			}
			limit, _ := cmd.Flags().GetInt("limit")
			return printRows(cmd.OutOrStdout(), rows, limit)
		},
	}

	indexCmd = &cobra.Command{
		Use:   "index [index] [key]",
		Short: "Print the entries of an index, or only those with the given key",
		Args:  cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			idx := db.Index(args[0])
			reverse, _ := cmd.Flags().GetBool("reverse")
			if len(args) == 1 {
				if reverse {
					return printRows(cmd.OutOrStdout(), idx.AllReversed(), 0)
				}
				return printRows(cmd.OutOrStdout(), idx.All(), 0)
			}
			if count, _ := cmd.Flags().GetBool("count"); count {
				n, err := idx.Count(parseKey(args[1]))
				if err != nil {
					return err
				}
				_, err = fmt.Fprintln(cmd.OutOrStdout(), n)
				return err
			}
			if reverse {
				return printRows(cmd.OutOrStdout(), idx.GetReversed(parseKey(args[1])), 0)
			}
			return printRows(cmd.OutOrStdout(), idx.Get(parseKey(args[1])), 0)
		},
	}

	statsCmd = &cobra.Command{
		Use:   "stats [name]",
		Short: "Print the size of a store, or of an index with --index",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if isIndex, _ := cmd.Flags().GetBool("index"); isIndex {
				st, err := db.IndexStats(args[0])
				if err != nil {
					return err
				}
				_, err = fmt.Fprintf(cmd.OutOrStdout(), "entries: %d\ndistinct keys: %d\nsize: %d\n", st.Entries, st.DistinctKeys, st.DataSize)
				return err
			}
			st, err := db.StoreStats(args[0])
			if err != nil {
				return err
			}
			_, err = fmt.Fprintf(cmd.OutOrStdout(), "records: %d\nhistory entries: %d\ndata size: %d\nhistory size: %d\n", st.Records, st.HistoryEntries, st.DataSize, st.HistorySize)
			return err
		},
	}
)

func init() {
	dumpCmd.Flags().Bool("records", false, wrapString("Include records"))
	dumpCmd.Flags().Bool("history", false, wrapString("Include history entries"))
	dumpCmd.Flags().Bool("entries", false, wrapString("Include index entries"))
	dumpCmd.Flags().Bool("raw", false, wrapString("Prefix every line with the hex-encoded physical key"))

	scanCmd.Flags().String("start", "", wrapString("First key to include"))
	scanCmd.Flags().String("end", "", wrapString("First key to exclude"))
	scanCmd.Flags().Int("limit", 0, wrapString("Stop after this many records (0 for no limit)"))
	scanCmd.Flags().Bool("reverse", false, wrapString("Print in descending key order"))

	indexCmd.Flags().Bool("count", false, wrapString("Only print the number of entries with the key"))
	indexCmd.Flags().Bool("reverse", false, wrapString("Print in descending key order, newest entries first"))

	statsCmd.Flags().Bool("index", false, wrapString("The name is an index"))
}

// parseKey interprets s as JSON, falling back to a plain string.
func parseKey(s string) any {
	var v any
	if err := json.Unmarshal([]byte(s), &v); err != nil {
		return s
	}
	return v
}

func printJSON(w io.Writer, v any) error {
	raw, err := json.Marshal(v)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintf(w, "%s\n", raw)
	return err
}

func printRows(w io.Writer, rows *pushdb.Rows, limit int) error {
	defer rows.Close()
	var n int
	for rows.Next() {
		row := rows.Row()
		raw, err := json.Marshal(row.Value())
		if err != nil {
			return err
		}
		_, err = fmt.Fprintf(w, "%v\t%s\n", row.KeyValue(), raw)
		if err != nil {
			return err
		}
		n++
		if limit > 0 && n >= limit {
			break
		}
	}
	return rows.Err()
}
