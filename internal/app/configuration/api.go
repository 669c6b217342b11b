package configuration

import (
	"context"
	"fmt"
	"net/http"

	"github.com/form3tech-oss/pact-recorder/internal/app/httpresponse"
	"github.com/form3tech-oss/pact-recorder/internal/app/pactrecorder"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	log "github.com/sirupsen/logrus"
)

func ServeAdminAPI(port int) *echo.Echo {
	adminServer := NewAdminAPI()

	go func() {
		address := fmt.Sprintf(":%d", port)
		if err := adminServer.Start(address); err != nil && err != http.ErrServerClosed {
			log.Fatal(err)
		}
	}()

	return adminServer
}

func NewAdminAPI() *echo.Echo {
	adminServer := echo.New()
	adminServer.HideBanner = true
	adminServer.HidePort = true
	adminServer.Use(middleware.Recover())

	adminServer.DELETE("/recorders", deleteRecordersHandler)
	adminServer.POST("/recorders", postRecordersHandler)
	adminServer.DELETE("/pacts", deletePactsHandler)

	return adminServer
}

func deleteRecordersHandler(c echo.Context) error {
	log.Infof("closing all recorders")
	ShutdownAllServers(context.Background())
	return c.NoContent(http.StatusNoContent)
}

func postRecordersHandler(c echo.Context) error {
	recorderConfig := pactrecorder.Config{}
	err := c.Bind(&recorderConfig)
	if err != nil {
		return c.JSON(
			http.StatusBadRequest,
			httpresponse.Errorf("unable to parse recorder configuration. %s", err.Error()),
		)
	}

	log.Infof("setting up recorder from %s to %s", recorderConfig.ServerAddress.String(), recorderConfig.Target.String())

	err = ConfigureRecorder(recorderConfig)
	if err != nil {
		return c.JSON(
			http.StatusInternalServerError,
			httpresponse.Errorf("unable to create recorder from configuration. %s", err.Error()),
		)
	}

	return c.NoContent(http.StatusNoContent)
}

func deletePactsHandler(c echo.Context) error {
	if dir := c.QueryParam("dir"); dir != "" {
		log.Infof("removing pacts in %s", dir)
		if err := CleanPacts(dir); err != nil {
			return c.JSON(http.StatusInternalServerError, httpresponse.Errorf("unable to remove pacts. %s", err.Error()))
		}
		return c.NoContent(http.StatusNoContent)
	}

	log.Infof("removing pacts of all recorders")
	if err := CleanAllPacts(); err != nil {
		return c.JSON(http.StatusInternalServerError, httpresponse.Errorf("unable to remove pacts. %s", err.Error()))
	}
	return c.NoContent(http.StatusNoContent)
}
