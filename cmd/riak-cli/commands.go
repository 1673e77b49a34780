package main

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/pior/riak"
)

var (
	pingCmd = &cobra.Command{
		Use:   "ping",
		Short: "Check that every node answers",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := commandContext(cmd)
			defer cancel()
			if err := client.Ping(ctx); err != nil {
				return err
			}
			printf(cmd, "pong\n")
			return nil
		},
	}

	infoCmd = &cobra.Command{
		Use:   "info",
		Short: "Print the node name and Riak version",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := commandContext(cmd)
			defer cancel()
			info, err := client.ServerInfo(ctx)
			if err != nil {
				return err
			}
			printf(cmd, "%s %s\n", info.Node, info.Version)
			return nil
		},
	}

	bucketsCmd = &cobra.Command{
		Use:   "buckets",
		Short: "List the buckets of the bucket type (expensive)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := commandContext(cmd)
			defer cancel()
			buckets, err := client.BucketType(bucketType()).Buckets(ctx)
			if err != nil {
				return err
			}
			for _, b := range buckets {
				printf(cmd, "%s\n", b)
			}
			return nil
		},
	}

	getCmd = &cobra.Command{
		Use:   "get [bucket] [key]",
		Short: "Fetch an object and print its siblings",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := commandContext(cmd)
			defer cancel()
			obj, err := bucket(args[0]).Get(ctx, args[1], riak.GetOptions{})
			if err != nil {
				return err
			}
			if !obj.Exists() {
				return fmt.Errorf("%s not found", obj.Location)
			}
			for i, s := range obj.Siblings {
				data, err := s.Data()
				if err != nil {
					return err
				}
				if len(obj.Siblings) > 1 {
					printf(cmd, "sibling %d (%s, %s):\n", i, s.ContentType, s.LastModified)
				}
				printf(cmd, "%s\n", data)
			}
			return nil
		},
	}

	putCmd = &cobra.Command{
		Use:   "put [bucket] [key] [value]",
		Short: "Store a value, replacing the siblings of the current object",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := commandContext(cmd)
			defer cancel()

			b := bucket(args[0])
			obj, err := b.Get(ctx, args[1], riak.GetOptions{Head: true})
			if err != nil {
				return err
			}
			obj.Siblings = nil

			content, err := obj.Content()
			if err != nil {
				return err
			}
			content.ContentType = flagString(cmd, "content-type")
			content.ContentEncoding = flagString(cmd, "encoding")
			if err := content.SetData([]byte(args[2])); err != nil {
				return err
			}
			for _, idx := range flagStrings(cmd, "index") {
				field, value, ok := strings.Cut(idx, "=")
				if !ok {
					return fmt.Errorf("invalid index %q, expected field=value", idx)
				}
				content.AddIndex(field, value)
			}

			if err := b.Store(ctx, obj, riak.PutOptions{}); err != nil {
				return err
			}
			printf(cmd, "stored %s\n", obj.Location)
			return nil
		},
	}

	deleteCmd = &cobra.Command{
		Use:   "delete [bucket] [key]",
		Short: "Delete an object",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := commandContext(cmd)
			defer cancel()
			obj, err := bucket(args[0]).Get(ctx, args[1], riak.GetOptions{Head: true})
			if err != nil {
				return err
			}
			if err := obj.Delete(ctx, riak.DeleteOptions{}); err != nil {
				return err
			}
			printf(cmd, "deleted %s\n", obj.Location)
			return nil
		},
	}

	keysCmd = &cobra.Command{
		Use:   "keys [bucket]",
		Short: "Stream the keys of a bucket (expensive)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := commandContext(cmd)
			defer cancel()
			return bucket(args[0]).StreamKeys(ctx, func(keys []string) error {
				for _, k := range keys {
					printf(cmd, "%s\n", k)
				}
				return nil
			})
		},
	}

	propsCmd = &cobra.Command{
		Use:   "props [bucket]",
		Short: "Print the properties of a bucket as JSON",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := commandContext(cmd)
			defer cancel()
			props, err := bucket(args[0]).Props(ctx)
			if err != nil {
				return err
			}
			return printJSON(cmd, props)
		},
	}

	counterCmd = &cobra.Command{
		Use:   "counter [bucket] [key] [increment]",
		Short: "Print a counter, after adding the optional increment",
		Args:  cobra.RangeArgs(2, 3),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := commandContext(cmd)
			defer cancel()

			counter := bucket(args[0]).Counter(args[1])
			if len(args) == 3 {
				n, err := strconv.ParseInt(args[2], 10, 64)
				if err != nil {
					return fmt.Errorf("increment must be a number: %w", err)
				}
				counter.Increment(n)
				if err := counter.Update(ctx, riak.UpdateDatatypeOptions{}); err != nil {
					return err
				}
			} else if err := counter.Reload(ctx, riak.FetchDatatypeOptions{}); err != nil {
				return err
			}
			printf(cmd, "%d\n", counter.Value())
			return nil
		},
	}

	setCmd = &cobra.Command{
		Use:   "set [bucket] [key]",
		Short: "Print a set, after the additions and removals given as flags",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := commandContext(cmd)
			defer cancel()

			set := bucket(args[0]).Set(args[1])
			if err := set.Reload(ctx, riak.FetchDatatypeOptions{}); err != nil {
				return err
			}
			for _, v := range flagStrings(cmd, "add") {
				set.Add(v)
			}
			for _, v := range flagStrings(cmd, "remove") {
				if err := set.Discard(v); err != nil {
					return err
				}
			}
			if set.Modified() {
				if err := set.Update(ctx, riak.UpdateDatatypeOptions{}); err != nil {
					return err
				}
			}
			for _, v := range set.Value() {
				printf(cmd, "%s\n", v)
			}
			return nil
		},
	}

	indexCmd = &cobra.Command{
		Use:   "index [bucket] [index] [value|min] [max]",
		Short: "Query a secondary index, by exact value or by range",
		Args:  cobra.RangeArgs(3, 4),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := commandContext(cmd)
			defer cancel()

			q := riak.IndexQuery{Index: args[1], Match: args[2], MaxResults: flagUint32(cmd, "page-size")}
			if len(args) == 4 {
				q = riak.IndexQuery{Index: args[1], Range: true, Min: args[2], Max: args[3], MaxResults: q.MaxResults}
			}

			pages := bucket(args[0]).IndexPages(q)
			for pages.Next(ctx) {
				for _, k := range pages.Page().Keys {
					printf(cmd, "%s\n", k)
				}
			}
			return pages.Err()
		},
	}

	mapReduceCmd = &cobra.Command{
		Use:   "mapreduce [bucket]",
		Short: "Run a JavaScript map phase over a bucket (expensive)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := commandContext(cmd)
			defer cancel()

			result, err := client.MapReduce().
				AddBucket(bucketType(), args[0]).
				Map(riak.NamedJavaScript(flagString(cmd, "map")), nil, true).
				Run(ctx)
			if err != nil {
				return err
			}
			return printJSON(cmd, result.All())
		},
	}

	statsCmd = &cobra.Command{
		Use:   "stats",
		Short: "Ping every node and print the client metrics",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := commandContext(cmd)
			defer cancel()
			if err := client.Ping(ctx); err != nil {
				return err
			}
			client.WritePrometheus(cmd.OutOrStdout())
			return nil
		},
	}
)

func init() {
	putCmd.Flags().String("content-type", riak.ContentTypeText, "content type of the value")
	putCmd.Flags().String("encoding", "", "content encoding: gzip, zstd or empty")
	putCmd.Flags().StringSlice("index", nil, "secondary index entry, as field=value")

	setCmd.Flags().StringSlice("add", nil, "elements to add")
	setCmd.Flags().StringSlice("remove", nil, "elements to remove")

	indexCmd.Flags().Uint32("page-size", 100, "results per request")

	mapReduceCmd.Flags().String("map", "Riak.mapValuesJson", "built-in JavaScript map function")
}

func flagString(cmd *cobra.Command, name string) string {
	v, _ := cmd.Flags().GetString(name)
	return v
}

func flagStrings(cmd *cobra.Command, name string) []string {
	v, _ := cmd.Flags().GetStringSlice(name)
	return v
}

func flagUint32(cmd *cobra.Command, name string) uint32 {
	v, _ := cmd.Flags().GetUint32(name)
	return v
}

func printJSON(cmd *cobra.Command, v any) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
