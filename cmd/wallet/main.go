// Package main: wallet service.
//
// The database keeps the sessions of the adapters so that a restarted service, or another instance sharing the same
// database, resumes the connections of its clients. It should be the same database used by the listener service,
// as the events requested from the wallet API are the ones recorded by the listener.
package main

import (
	"context"
	"encoding/hex"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/tarancss/wadp/lib/auth/local"
	"github.com/tarancss/wadp/lib/chain"
	"github.com/tarancss/wadp/lib/config"
	mon "github.com/tarancss/wadp/lib/monitor"
	"github.com/tarancss/wadp/lib/msg"
	"github.com/tarancss/wadp/lib/msg/amqp"
	"github.com/tarancss/wadp/lib/store"
	"github.com/tarancss/wadp/lib/store/db"
	"github.com/tarancss/wadp/wallet"
)

func main() {
	// get command line flags
	confPath := flag.String("c", "", "flag to get configuration from json file")
	monitor := flag.Bool("m", false, "flag to monitor the server with Prometheus at http://localhost:9090")
	flag.Parse()

	// extract configuration
	conf, err := config.ExtractConfiguration(*confPath)
	if err != nil {
		panic(err)
	}

	log.Printf("Configuration: dbtype:%s endpoint:%s port:%s mbtype:%s clients:%d", conf.DbType,
		conf.RestfulEndpoint, conf.Port, conf.MbType, len(conf.Clients))

	chain.InfuraProxyID = conf.InfuraProxyID

	// connect to database
	var dbConn store.DB

	if conf.DbConn != "" || conf.DbType == db.MEMORY {
		if dbConn, err = db.New(conf.DbType, conf.DbConn); err != nil {
			panic(err)
		}

		log.Printf("Connected to %s database", conf.DbType)
	}

	// load Prometheus monitor
	var m *mon.Monitor

	if *monitor {
		if m, err = mon.New(prometheus.DefaultRegisterer); err != nil {
			panic(err)
		}

		go func() {
			log.Println("Serving metrics API")

			h := http.NewServeMux()

			h.Handle("/metrics", promhttp.Handler())
			log.Printf("Metrics API: %v", http.ListenAndServe(":9100", h)) //nolint:gosec // internal metrics port
		}()
	}

	// load message broker
	var mb msg.MsgBroker

	switch conf.MbType {
	case "amqp":
		if mb, err = amqp.New(conf.MbConn); err != nil {
			time.Sleep(10 * time.Second) // wait 10s for AMQP to be ready and try to reconnect

			if mb, err = amqp.New(conf.MbConn); err != nil {
				panic(err)
			}
		}

		if err = mb.Setup(nil); err != nil {
			panic(err)
		}
	default:
		log.Printf("Unknown message broker type: %s, events will not be published\n", conf.MbType)
	}

	// load the authority logging users in
	seed, err := hex.DecodeString(conf.Seed)
	if err != nil {
		panic(err)
	}

	la, err := local.New(seed, dbConn, []byte(conf.SessionSecret))
	if err != nil {
		panic(err)
	}

	log.Printf("Id tokens issued by %s", la.Issuer().Hex())

	// create wallet service
	w, err := wallet.New(conf.DbType, dbConn, mb, m, conf.Clients, la.Factory, conf.SessionTime)
	if err != nil {
		panic(err)
	}

	w.InitAdapters(context.Background())

	// capture CTRL+C or docker's SIGTERM for gracious exit
	finish := make(chan int)

	go func() {
		sigchan := make(chan os.Signal, 10)
		signal.Notify(sigchan, os.Interrupt, syscall.SIGTERM)
		<-sigchan
		log.Println("Program killed !")
		// do last actions and wait for all write operations to end
		w.Stop()
		close(finish)
	}()

	// init RESTful API, wait for its return and log response
	log.Printf("Wallet: %s\n", w.Init(conf.RestfulEndpoint, conf.Port, conf.SSLPort, conf.SSLCert, conf.SSLKey))

	<-finish
}
