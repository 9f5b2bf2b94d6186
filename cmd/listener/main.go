// package main: listener service
//
// The listener records the adapter events published by the wallet services. Set WADP_LISTEN to a comma separated
// list of client ids to listen to only those, otherwise the events of every client id are consumed.
package main

import (
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/tarancss/wadp/lib/config"
	mon "github.com/tarancss/wadp/lib/monitor"
	"github.com/tarancss/wadp/lib/msg"
	"github.com/tarancss/wadp/lib/msg/amqp"
	"github.com/tarancss/wadp/lib/store"
	"github.com/tarancss/wadp/lib/store/db"
	"github.com/tarancss/wadp/listener"
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

	log.Printf("Configuration: dbtype:%s mbtype:%s", conf.DbType, conf.MbType)

	// connect to database
	var dbConn store.DB

	if conf.DbConn != "" || conf.DbType == db.MEMORY {
		if dbConn, err = db.New(conf.DbType, conf.DbConn); err != nil {
			panic(err)
		}

		log.Printf("Connected to %s database", conf.DbType)

		defer func() {
			log.Printf("Disconnecting %v database, err:%v", conf.DbType, db.Close(conf.DbType, dbConn))
		}()
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

		defer func() {
			log.Printf("Closing messageBroker: %v", mb.Close())
		}()
	default:
		log.Printf("Unknown message broker type: %s\n", conf.MbType)
	}

	var clients []string

	if tmp := os.Getenv("WADP_LISTEN"); tmp != "" {
		clients = strings.Split(tmp, ",")
	}

	// create listener service
	l := listener.New(conf.DbType, dbConn, mb, m, clients)

	ret, err := l.Listen()
	if err != nil {
		panic(err)
	}

	// capture CTRL+C or docker's SIGTERM for gracious exit
	go func() {
		sigchan := make(chan os.Signal, 10)
		signal.Notify(sigchan, os.Interrupt, syscall.SIGTERM)
		<-sigchan
		log.Println("Program killed !")
		l.Stop()
	}()

	log.Printf("Listener: %s\n", <-ret)
}
