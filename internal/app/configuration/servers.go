package configuration

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"fmt"
	"net/http"
	"net/url"
	"os"
	"strings"
	"sync"

	"github.com/form3tech-oss/pact-recorder/internal/app/pactrecorder"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
)

var servers sync.Map
var hostPaths sync.Map

// serversMu makes looking up, creating and shutting down a host's server one step.
var serversMu sync.Mutex

// StartServer serves a recorder for config at url. Recorders on the same host share one
// server and are told apart by their path prefix.
func StartServer(url *url.URL, config *pactrecorder.Config) error {
	serversMu.Lock()
	defer serversMu.Unlock()

	path := strings.TrimRight(url.Path, "/")
	mountKey := url.Host + path

	rootServer, loaded := loadServer(url.Host)
	if loaded {
		// don't allow two recorders on the same address and path
		if _, found := hostPaths.LoadOrStore(mountKey, true); found {
			return fmt.Errorf("recorder already running at %s", url.String())
		}
		mount(rootServer.Handler.(*echo.Echo), path, config)
		return nil
	}

	rootServer, err := newServer(url, config)
	if err != nil {
		return err
	}
	hostPaths.Store(mountKey, true)
	mount(rootServer.Handler.(*echo.Echo), path, config)
	servers.Store(url.Host, rootServer)

	go func() {
		var err error
		if config.TLSCertFile != "" && config.TLSKeyFile != "" {
			err = rootServer.ListenAndServeTLS(config.TLSCertFile, config.TLSKeyFile)
		} else {
			err = rootServer.ListenAndServe()
		}
		if err != nil && err != http.ErrServerClosed {
			log.Error(err)
		}
	}()
	return nil
}

func loadServer(addr string) (*http.Server, bool) {
	server, loaded := servers.Load(addr)
	if !loaded {
		return nil, false
	}
	return server.(*http.Server), loaded
}

func ShutdownAllServers(ctx context.Context) {
	serversMu.Lock()
	defer serversMu.Unlock()

	servers.Range(func(key, _ interface{}) bool {
		server, loaded := servers.LoadAndDelete(key)
		if loaded {
			if err := server.(*http.Server).Shutdown(ctx); err != nil {
				log.Error(err)
			}
		}
		return true
	})

	hostPaths.Range(func(key, value any) bool {
		hostPaths.Delete(key)
		return true
	})
}

func newServer(url *url.URL, config *pactrecorder.Config) (*http.Server, error) {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Use(middleware.Recover())

	s := http.Server{
		Addr:    url.Host,
		Handler: e,
	}

	if config.TLSCAFile != "" {
		if config.TLSCertFile == "" || config.TLSKeyFile == "" {
			return nil, errors.New("cannot run in mTLS mode without TLS cert and key")
		}

		caCertFile, err := os.ReadFile(config.TLSCAFile)
		if err != nil {
			return nil, errors.Wrap(err, "error reading CA certificate")
		}
		certPool := x509.NewCertPool()
		certPool.AppendCertsFromPEM(caCertFile)
		s.TLSConfig = &tls.Config{
			ClientAuth: tls.RequireAndVerifyClientCert,
			ClientCAs:  certPool,
			MinVersion: tls.VersionTLS12,
		}
	}

	return &s, nil
}

// mount adds the recorder routes to e, either at the root or below a path prefix.
func mount(e *echo.Echo, path string, config *pactrecorder.Config) {
	recorder := recorderFor(config.Dir())
	log.Infof("recording %s into %s", config.Target.String(), absDir(config.Dir()))

	if path == "" {
		pactrecorder.SetupRoutes(e, config, recorder)
		return
	}

	sub := echo.New()
	pactrecorder.SetupRoutes(sub, config, recorder)
	e.Any(path+"/*", echo.WrapHandler(http.StripPrefix(path, sub)))
}
