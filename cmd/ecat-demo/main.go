// Command ecat-demo wires adapter discovery, the link facade, and the
// Prometheus metrics endpoint together, mirroring the teacher's
// cmd/get/main.go and cmd/exporter_example1/main.go: a small main() that
// constructs everything by hand and logs what happens via logrus.
package main

import (
	"context"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/simeonmiteff/autd-ecat-link/pkg/cycle"
	"github.com/simeonmiteff/autd-ecat-link/pkg/discovery"
	"github.com/simeonmiteff/autd-ecat-link/pkg/iomap"
	"github.com/simeonmiteff/autd-ecat-link/pkg/link"
	"github.com/simeonmiteff/autd-ecat-link/pkg/metrics"
	"github.com/simeonmiteff/autd-ecat-link/pkg/supervisor"
	"github.com/simeonmiteff/autd-ecat-link/pkg/transport"
)

func main() {
	ifname := flag.String("ifname", "", "network interface to attach to; auto-discovered if empty")
	fake := flag.Bool("fake", false, "rehearse against an in-memory fake bus instead of real hardware")
	fakeSlaves := flag.Int("fake-slaves", 1, "slave count for -fake rehearsal mode")
	metricsAddr := flag.String("metrics-addr", ":18080", "address to serve /metrics on")
	flag.Parse()

	var txport transport.Transport
	if *fake {
		txport = transport.NewFake(*fakeSlaves, "AUTD")
	}

	resolved := *ifname
	if resolved == "" {
		var factory discovery.Factory
		if *fake {
			factory = func() transport.Transport { return transport.NewFake(*fakeSlaves, "AUTD") }
		}
		var err error
		resolved, err = discovery.Find(factory)
		if err != nil {
			logrus.WithError(err).Fatal("ecat-demo: discovery failed")
		}
	}

	reg := metrics.New()
	cycleMetrics := cycle.NewMetrics()
	slaveMetrics := supervisor.NewSlaveCollector(*fakeSlaves)
	reg.MustRegister(cycleMetrics.Collectors()...)
	reg.MustRegister(slaveMetrics)

	httpSrv := &http.Server{Addr: *metricsAddr, Handler: metricsMux(reg)}
	go func() {
		logrus.WithField("addr", *metricsAddr).Info("ecat-demo: serving /metrics")
		if err := httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logrus.WithError(err).Error("ecat-demo: metrics server exited")
		}
	}()

	l := link.New()
	opts := []link.Option{
		link.WithIfname(resolved),
		link.WithCallback(func(e supervisor.Event) {
			logrus.WithField("slave", e.Slave).WithField("status", e.Status.String()).Info("ecat-demo: supervisor event")
		}),
		link.WithMetrics(slaveMetrics),
		link.WithCycleMetrics(cycleMetrics),
	}
	if txport != nil {
		opts = append(opts, link.WithTransport(txport))
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := l.Open(ctx, nil, opts...); err != nil {
		logrus.WithError(err).Fatal("ecat-demo: open failed")
	}
	logrus.Info("ecat-demo: link open, streaming")

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)

	ticker := time.NewTicker(10 * time.Millisecond)
	defer ticker.Stop()

	for {
		select {
		case <-sigCh:
			logrus.Info("ecat-demo: shutting down")
			_ = l.Close()
			_ = httpSrv.Close()
			return
		case <-ticker.C:
			if err := streamOnce(l); err != nil {
				logrus.WithError(err).Warn("ecat-demo: stream iteration failed")
			}
		}
	}
}

func streamOnce(l *link.Link) error {
	tx, err := l.AllocTXBuffer()
	if err != nil {
		return err
	}
	if err := l.Send(tx); err != nil {
		return err
	}

	rx := make([]iomap.RxMessage, len(tx))
	return l.Receive(rx)
}

func metricsMux(reg *metrics.Registry) http.Handler {
	mux := http.NewServeMux()
	mux.Handle("/metrics", reg.Handler())
	return mux
}
