/*
Copyright 2025 The Mywire Authors.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

package cmd

import (
	"context"
	"fmt"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"mywire.dev/mywire/go/mysql"
	"mywire.dev/mywire/go/mysql/xproto"
	"mywire.dev/mywire/go/sqltypes"
)

var queryMaxRows int

// Query builds the query command.
func Query() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "query <sql> [<sql> ...]",
		Short: "Run one or more statements and print their results.",
		Args:  cobra.MinimumNArgs(1),
		RunE:  runQuery,
	}
	cmd.Flags().IntVar(&queryMaxRows, "max-rows", 10000, "error out if a result has more rows than this")
	return cmd
}

func runQuery(cmd *cobra.Command, args []string) error {
	params, err := connParams()
	if err != nil {
		return err
	}
	ctx := context.Background()

	if useXProto {
		conn, err := xproto.Connect(ctx, params)
		if err != nil {
			return err
		}
		defer conn.Close()
		for _, query := range args {
			result, err := conn.ExecuteFetch(query)
			if err != nil {
				return err
			}
			printResult(result)
		}
		return conn.Quit()
	}

	conn, err := mysql.Connect(ctx, params)
	if err != nil {
		return err
	}
	defer conn.Close()
	for _, query := range args {
		result, err := conn.ExecuteFetch(query, queryMaxRows, true)
		if err != nil {
			return err
		}
		printResult(result)
	}
	return conn.Quit()
}

func printResult(result *sqltypes.Result) {
	if len(result.Fields) == 0 {
		fmt.Printf("%v rows affected", result.RowsAffected)
		if result.InsertID != 0 {
			fmt.Printf(", insert id %v", result.InsertID)
		}
		if result.Info != "" {
			fmt.Printf(" (%v)", result.Info)
		}
		fmt.Println()
		return
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 8, 2, ' ', 0)
	names := make([]string, len(result.Fields))
	for i, field := range result.Fields {
		names[i] = field.Name
	}
	fmt.Fprintln(w, strings.Join(names, "\t"))
	for _, row := range result.Rows {
		vals := make([]string, len(row))
		for i, val := range row {
			if val.IsNull() {
				vals[i] = "NULL"
			} else {
				vals[i] = val.ToString()
			}
		}
		fmt.Fprintln(w, strings.Join(vals, "\t"))
	}
	w.Flush()
	fmt.Printf("%v rows\n", len(result.Rows))
}
