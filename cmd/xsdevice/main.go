/*
 * MIT License
 *
 * Copyright (c) 2024 Nicolas JUHEL
 *
 * Permission is hereby granted, free of charge, to any person obtaining a copy
 * of this software and associated documentation files (the "Software"), to deal
 * in the Software without restriction, including without limitation the rights
 * to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
 * copies of the Software, and to permit persons to whom the Software is
 * furnished to do so, subject to the following conditions:
 *
 * The above copyright notice and this permission notice shall be included in all
 * copies or substantial portions of the Software.
 *
 * THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
 * IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
 * FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
 * AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
 * LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
 * OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN THE
 * SOFTWARE.
 */

// Command xsdevice is a one-shot CLI demonstrating the public Socket API: it
// mints a single socket of the requested pattern, binds and/or connects it to
// the given endpoints, then bridges stdin/stdout to Send/Recv until
// interrupted.
package main

import (
	"bufio"
	"context"
	"crypto/tls"
	"crypto/x509"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	xscore "github.com/crossroads-io/xscore/ctx"
	"github.com/crossroads-io/xscore/metrics"
	"github.com/crossroads-io/xscore/socket"
	"github.com/crossroads-io/xscore/wire"
	"github.com/crossroads-io/xscore/xserr"
	"github.com/crossroads-io/xscore/xslog"
)

var (
	flagType        string
	flagBind        []string
	flagConnect     []string
	flagTLSCert     string
	flagTLSKey      string
	flagTLSCA       string
	flagMetricsAddr string
	flagLogLevel    string
)

func main() {
	root := &cobra.Command{
		Use:     "xsdevice",
		Short:   "Run a single crossroads-io socket as a standalone device",
		PreRunE: bindEnvOverrides,
		RunE:    run,
	}

	flags := root.Flags()
	flags.StringVar(&flagType, "type", "", "socket pattern: req|rep|xreq|xrep|pub|sub|xpub|xsub|push|pull|surveyor|respondent|xsurveyor|xrespondent")
	flags.StringArrayVar(&flagBind, "bind", nil, "endpoint to listen on, e.g. tcp://0.0.0.0:5555 (repeatable)")
	flags.StringArrayVar(&flagConnect, "connect", nil, "endpoint to dial, e.g. tcp://peer:5555 (repeatable)")
	flags.StringVar(&flagTLSCert, "tls-cert", "", "PEM certificate file, enables tcp+tls")
	flags.StringVar(&flagTLSKey, "tls-key", "", "PEM private key file, enables tcp+tls")
	flags.StringVar(&flagTLSCA, "tls-ca", "", "PEM CA bundle to verify the peer against")
	flags.StringVar(&flagMetricsAddr, "metrics-addr", "", "if set, serve Prometheus metrics on this address")
	flags.StringVar(&flagLogLevel, "log-level", "info", "logrus level: debug|info|warning|error")

	_ = viper.BindPFlags(flags)
	viper.SetEnvPrefix("XSDEVICE")
	viper.AutomaticEnv()

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// bindEnvOverrides applies any XSDEVICE_* environment override to flags the
// user didn't pass explicitly on the command line.
func bindEnvOverrides(cmd *cobra.Command, args []string) error {
	var err error
	cmd.Flags().VisitAll(func(f *pflag.Flag) {
		if err != nil || f.Changed || !viper.IsSet(f.Name) {
			return
		}
		err = f.Value.Set(viper.GetString(f.Name))
	})
	return err
}

func run(cmd *cobra.Command, args []string) error {
	level, err := logrus.ParseLevel(flagLogLevel)
	if err != nil {
		return err
	}
	log := xslog.New(level)

	kind, err := kindFromString(flagType)
	if err != nil {
		return err
	}

	sigCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	xctx := xscore.New(xscore.DefaultOptions(), log)

	var collector *metrics.Collector
	if flagMetricsAddr != "" {
		collector = metrics.New(prometheus.DefaultRegisterer)
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.Handler())
		srv := &http.Server{Addr: flagMetricsAddr, Handler: mux}
		go func() {
			if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				log.WithField("error", err.Error()).Error("metrics server stopped")
			}
		}()
		go func() {
			<-sigCtx.Done()
			_ = srv.Close()
		}()
	}

	sk, err := xctx.NewSocket(kind)
	if err != nil {
		return err
	}
	if collector != nil {
		sk.SetMetrics(collector)
	}

	if tlsCfg, err := buildTLSConfig(); err != nil {
		return err
	} else if tlsCfg != nil {
		if err := sk.SetSockOpt(socket.OptTLSConfig, tlsCfg); err != nil {
			return err
		}
		for i := range flagBind {
			flagBind[i] = rewriteScheme(flagBind[i], "tcp+tls")
		}
		for i := range flagConnect {
			flagConnect[i] = rewriteScheme(flagConnect[i], "tcp+tls")
		}
	}

	for _, ep := range flagBind {
		if err := sk.Bind(ep); err != nil {
			return fmt.Errorf("bind %s: %w", ep, err)
		}
	}
	for _, ep := range flagConnect {
		if err := sk.Connect(ep); err != nil {
			return fmt.Errorf("connect %s: %w", ep, err)
		}
	}

	go pumpStdinToSocket(sigCtx, sk, log)
	go pumpSocketToStdout(sigCtx, sk, log)

	<-sigCtx.Done()
	return xctx.Term(context.Background())
}

// pumpStdinToSocket sends one line of stdin per Send call, stopping silently
// once the pattern direction doesn't support sending (ENOTSUP).
func pumpStdinToSocket(ctx context.Context, sk *socket.Core, log xslog.Logger) {
	scanner := bufio.NewScanner(os.Stdin)
	for scanner.Scan() {
		if ctx.Err() != nil {
			return
		}
		err := sk.Send(ctx, wire.NewFrame(scanner.Bytes(), false), false, false)
		if err != nil {
			if xserr.CodeOf(err) == xserr.ENOTSUP {
				return
			}
			log.WithField("error", err.Error()).Warning("send failed")
		}
	}
}

// pumpSocketToStdout prints every received message, stopping silently once
// the pattern direction doesn't support receiving.
func pumpSocketToStdout(ctx context.Context, sk *socket.Core, log xslog.Logger) {
	w := bufio.NewWriter(os.Stdout)
	defer w.Flush()
	for {
		if ctx.Err() != nil {
			return
		}
		m, _, err := sk.Recv(ctx, false)
		if err != nil {
			if xserr.CodeOf(err) == xserr.ENOTSUP {
				return
			}
			if xserr.CodeOf(err) == xserr.ETERM {
				return
			}
			log.WithField("error", err.Error()).Warning("recv failed")
			continue
		}
		w.Write(m.Data)
		w.WriteByte('\n')
		w.Flush()
	}
}

func buildTLSConfig() (*tls.Config, error) {
	if flagTLSCert == "" && flagTLSKey == "" {
		return nil, nil
	}
	cert, err := tls.LoadX509KeyPair(flagTLSCert, flagTLSKey)
	if err != nil {
		return nil, err
	}
	cfg := &tls.Config{
		Certificates: []tls.Certificate{cert},
		MinVersion:   tls.VersionTLS12,
	}
	if flagTLSCA != "" {
		pem, err := os.ReadFile(flagTLSCA)
		if err != nil {
			return nil, err
		}
		pool := x509.NewCertPool()
		if !pool.AppendCertsFromPEM(pem) {
			return nil, fmt.Errorf("tls-ca: no certificates parsed from %s", flagTLSCA)
		}
		cfg.RootCAs = pool
		cfg.ClientCAs = pool
	}
	return cfg, nil
}

func rewriteScheme(endpoint, scheme string) string {
	for i := 0; i < len(endpoint)-2; i++ {
		if endpoint[i] == ':' && endpoint[i+1] == '/' && endpoint[i+2] == '/' {
			return scheme + endpoint[i:]
		}
	}
	return endpoint
}

func kindFromString(s string) (socket.Kind, error) {
	switch s {
	case "xreq":
		return socket.KindXREQ, nil
	case "req":
		return socket.KindREQ, nil
	case "xrep":
		return socket.KindXREP, nil
	case "rep":
		return socket.KindREP, nil
	case "xpub":
		return socket.KindXPUB, nil
	case "pub":
		return socket.KindPUB, nil
	case "xsub":
		return socket.KindXSUB, nil
	case "sub":
		return socket.KindSUB, nil
	case "push":
		return socket.KindPUSH, nil
	case "pull":
		return socket.KindPULL, nil
	case "xsurveyor":
		return socket.KindXSURVEYOR, nil
	case "surveyor":
		return socket.KindSURVEYOR, nil
	case "xrespondent":
		return socket.KindXRESPONDENT, nil
	case "respondent":
		return socket.KindRESPONDENT, nil
	default:
		return 0, fmt.Errorf("unknown --type %q", s)
	}
}
