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
	"time"

	"github.com/spf13/cobra"

	"mywire.dev/mywire/go/mysql"
	"mywire.dev/mywire/go/mysql/xproto"
)

// Ping builds the ping command.
func Ping() *cobra.Command {
	return &cobra.Command{
		Use:   "ping",
		Short: "Connect to the server and measure a ping round trip.",
		Args:  cobra.NoArgs,
		RunE:  runPing,
	}
}

func runPing(cmd *cobra.Command, args []string) error {
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
		start := time.Now()
		if _, err := conn.ExecuteFetch("SELECT 1"); err != nil {
			return err
		}
		fmt.Printf("connection %v ok, round trip %v\n", conn.ConnectionID, time.Since(start))
		return nil
	}

	conn, err := mysql.Connect(ctx, params)
	if err != nil {
		return err
	}
	defer conn.Close()
	start := time.Now()
	if err := conn.Ping(); err != nil {
		return err
	}
	fmt.Printf("%v (server %v, connection %v) ok, round trip %v\n",
		conn.RemoteAddr(), conn.ServerVersion, conn.ConnectionID, time.Since(start))
	return conn.Quit()
}
