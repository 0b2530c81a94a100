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
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"mywire.dev/mywire/go/log"
	"mywire.dev/mywire/go/mysql"
	"mywire.dev/mywire/go/vttls"
)

var (
	configFile string

	useXProto bool
)

// Main builds the root command with all subcommands attached.
func Main() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "mywire",
		Short: "mywire is a small command line client for MySQL compatible servers.",
		Args:  cobra.NoArgs,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return initConfig(cmd)
		},
		Run: func(cmd *cobra.Command, _ []string) { cmd.Help() },
	}

	fs := rootCmd.PersistentFlags()
	fs.String("host", "localhost", "server host to connect to")
	fs.Int("port", 3306, "server port to connect to")
	fs.String("user", "root", "user to connect as")
	fs.String("password", "", "password to connect with")
	fs.String("database", "", "database to use")
	fs.String("unix-socket", "", "connect through this unix socket instead of TCP")
	fs.String("charset", "utf8mb4", "connection character set")
	fs.String("ssl-mode", "", "SSL mode: disabled, preferred, required, verify_ca or verify_identity")
	fs.String("ssl-ca", "", "path to the CA certificate")
	fs.String("ssl-cert", "", "path to the client certificate")
	fs.String("ssl-key", "", "path to the client private key")
	fs.String("server-name", "", "server name to verify the certificate against, instead of the hostname")
	fs.String("tls-min-version", "", "minimum accepted TLS version: TLSv1.2 or TLSv1.3")
	fs.Int("connect-timeout-ms", 10000, "connection timeout in milliseconds")
	fs.StringVarP(&configFile, "config-file", "f", "", "read connection defaults from this file (flags take precedence)")
	fs.BoolVar(&useXProto, "xproto", false, "use the X Protocol instead of the classic protocol")
	rootCmd.MarkPersistentFlagFilename("config-file")
	rootCmd.MarkPersistentFlagFilename("ssl-ca")
	rootCmd.MarkPersistentFlagFilename("ssl-cert")
	rootCmd.MarkPersistentFlagFilename("ssl-key")

	log.RegisterFlags(fs)

	rootCmd.AddCommand(Ping())
	rootCmd.AddCommand(Query())

	return rootCmd
}

// initConfig layers the optional config file under the flags: a flag
// set on the command line always wins over the file.
func initConfig(cmd *cobra.Command) error {
	if err := viper.BindPFlags(cmd.Flags()); err != nil {
		return err
	}
	if configFile == "" {
		return nil
	}
	viper.SetConfigFile(configFile)
	if err := viper.ReadInConfig(); err != nil {
		return fmt.Errorf("cannot read config file %v: %w", configFile, err)
	}
	log.Infof("using config file %v", viper.ConfigFileUsed())
	return nil
}

// connParams builds the connection parameters from the effective
// configuration.
func connParams() (*mysql.ConnParams, error) {
	params := &mysql.ConnParams{
		Host:             viper.GetString("host"),
		Port:             viper.GetInt("port"),
		Uname:            viper.GetString("user"),
		Pass:             viper.GetString("password"),
		DbName:           viper.GetString("database"),
		UnixSocket:       viper.GetString("unix-socket"),
		Charset:          viper.GetString("charset"),
		SslCa:            viper.GetString("ssl-ca"),
		SslCert:          viper.GetString("ssl-cert"),
		SslKey:           viper.GetString("ssl-key"),
		ServerName:       viper.GetString("server-name"),
		TLSMinVersion:    viper.GetString("tls-min-version"),
		ConnectTimeoutMs: uint64(viper.GetInt("connect-timeout-ms")),
	}
	if mode := viper.GetString("ssl-mode"); mode != "" {
		sslMode, err := vttls.ParseSslMode(mode)
		if err != nil {
			return nil, err
		}
		params.SslMode = sslMode
	}
	return params, nil
}
