package api

import (
	"context"
	_ "embed"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/bytedance/sonic"
	"github.com/labstack/echo/v4"
	log "github.com/sirupsen/logrus"

	"todo-api/domain"
)

const apiName = "TODO Serverless API"

//go:embed openapi.json
var openAPIDocument []byte

// Register wires up all API routes on the provided Echo instance.
func Register(e *echo.Echo, svc TaskService, health HealthChecker, info ServiceInfo, logger *log.Logger) {
	e.GET("/", root(info))
	e.GET("/health", healthz(health, info, logger))
	e.GET("/swagger/v1/swagger.json", swaggerDocument())

	e.GET("/todos", listTasks(svc, logger))
	e.POST("/todos", createTask(svc, logger))
	e.GET("/todos/:id", getTask(svc, logger))
	e.PUT("/todos/:id", updateTask(svc, logger))
	e.DELETE("/todos/:id", deleteTask(svc, logger))
}

func root(info ServiceInfo) echo.HandlerFunc {
	return func(c echo.Context) error {
		return c.JSON(http.StatusOK, infoResponse{
			API:     apiName,
			Version: info.Version,
			Endpoints: map[string]string{
				"todos":   "/todos",
				"swagger": "/swagger/v1/swagger.json",
				"health":  "/health",
			},
		})
	}
}

func healthz(health HealthChecker, info ServiceInfo, logger *log.Logger) echo.HandlerFunc {
	return func(c echo.Context) error {
		now := time.Now().UTC().Format(time.RFC3339Nano)
		if health != nil {
			ctx := c.Request().Context()
			if info.PingTimeout > 0 {
				var cancel context.CancelFunc
				ctx, cancel = context.WithTimeout(ctx, info.PingTimeout)
				defer cancel()
			}
			if err := health.Ping(ctx); err != nil {
				logger.WithError(err).Warn("health check failed")
				metricsFrom(c).SetErrorStage("ping")
				return c.JSON(http.StatusServiceUnavailable, healthResponse{
					Status:    "unhealthy",
					Timestamp: now,
					Version:   info.Version,
					Error:     err.Error(),
				})
			}
		}
		return c.JSON(http.StatusOK, healthResponse{
			Status:      "healthy",
			Timestamp:   now,
			Version:     info.Version,
			Environment: info.Environment,
			Region:      info.Region,
			Hostname:    info.Hostname,
		})
	}
}

func swaggerDocument() echo.HandlerFunc {
	return func(c echo.Context) error {
		return c.Blob(http.StatusOK, echo.MIMEApplicationJSON, openAPIDocument)
	}
}

func listTasks(svc TaskService, logger *log.Logger) echo.HandlerFunc {
	return func(c echo.Context) error {
		metrics := metricsFrom(c)
		limit := 0
		if raw := strings.TrimSpace(c.QueryParam("limit")); raw != "" {
			n, err := strconv.Atoi(raw)
			if err != nil || n <= 0 {
				metrics.SetErrorStage("invalid_limit")
				return c.JSON(http.StatusBadRequest, errorResponse{Error: msgInvalidLimit})
			}
			limit = n
		}

		tasks, err := svc.ListTasks(c.Request().Context(), limit)
		if err != nil {
			return writeServiceError(c, logger, "", err)
		}
		metrics.SetTasksReturned(len(tasks))
		return c.JSON(http.StatusOK, tasks)
	}
}

func getTask(svc TaskService, logger *log.Logger) echo.HandlerFunc {
	return func(c echo.Context) error {
		id := c.Param("id")
		metricsFrom(c).SetTaskID(id)
		task, err := svc.GetTask(c.Request().Context(), id)
		if err != nil {
			return writeServiceError(c, logger, id, err)
		}
		return c.JSON(http.StatusOK, task)
	}
}

func createTask(svc TaskService, logger *log.Logger) echo.HandlerFunc {
	return func(c echo.Context) error {
		in, ok := decodeTaskInput(c)
		if !ok {
			metricsFrom(c).SetErrorStage("decode")
			return c.JSON(http.StatusBadRequest, errorResponse{Error: msgInvalidBody})
		}

		task, err := svc.CreateTask(c.Request().Context(), in)
		if err != nil {
			return writeServiceError(c, logger, "", err)
		}
		metricsFrom(c).SetTaskID(task.ID)
		c.Response().Header().Set(echo.HeaderLocation, "/todos/"+task.ID)
		return c.JSON(http.StatusCreated, task)
	}
}

func updateTask(svc TaskService, logger *log.Logger) echo.HandlerFunc {
	return func(c echo.Context) error {
		id := c.Param("id")
		metricsFrom(c).SetTaskID(id)
		in, ok := decodeTaskInput(c)
		if !ok {
			metricsFrom(c).SetErrorStage("decode")
			return c.JSON(http.StatusBadRequest, errorResponse{Error: msgInvalidBody})
		}

		task, err := svc.UpdateTask(c.Request().Context(), id, in)
		if err != nil {
			return writeServiceError(c, logger, id, err)
		}
		return c.JSON(http.StatusOK, task)
	}
}

func deleteTask(svc TaskService, logger *log.Logger) echo.HandlerFunc {
	return func(c echo.Context) error {
		id := c.Param("id")
		metricsFrom(c).SetTaskID(id)
		if err := svc.DeleteTask(c.Request().Context(), id); err != nil {
			return writeServiceError(c, logger, id, err)
		}
		return c.NoContent(http.StatusNoContent)
	}
}

// decodeTaskInput reads exactly one JSON object of at most taskBodyMaxSize bytes.
func decodeTaskInput(c echo.Context) (domain.TaskInput, bool) {
	var in domain.TaskInput
	lr := io.LimitReader(c.Request().Body, taskBodyMaxSize)
	dec := sonic.ConfigStd.NewDecoder(lr)
	if err := dec.Decode(&in); err != nil {
		return domain.TaskInput{}, false
	}
	if dec.More() {
		return domain.TaskInput{}, false
	}
	return in, true
}

// ErrorHandler renders errors that escape handlers, such as unknown routes,
// wrong methods and recovered panics, as {"error": "..."}.
func ErrorHandler(logger *log.Logger) echo.HTTPErrorHandler {
	return func(err error, c echo.Context) {
		if c.Response().Committed {
			return
		}

		code := http.StatusInternalServerError
		msg := http.StatusText(code)
		var he *echo.HTTPError
		if errors.As(err, &he) {
			code = he.Code
			if m, ok := he.Message.(string); ok && m != "" {
				msg = m
			} else {
				msg = http.StatusText(code)
			}
		}
		if code >= http.StatusInternalServerError {
			logger.WithError(err).WithField("route", c.Path()).Error("unhandled request error")
			msg = http.StatusText(code)
		}

		var werr error
		if c.Request().Method == http.MethodHead {
			werr = c.NoContent(code)
		} else {
			werr = c.JSON(code, errorResponse{Error: msg})
		}
		if werr != nil {
			logger.WithError(werr).Warn("write error response failed")
		}
	}
}

func writeServiceError(c echo.Context, logger *log.Logger, id string, err error) error {
	var ve *domain.ValidationError
	switch {
	case errors.As(err, &ve):
		metricsFrom(c).SetErrorStage("validation")
		return c.JSON(http.StatusBadRequest, errorResponse{Error: ve.Message})
	case errors.Is(err, domain.ErrNotFound):
		metricsFrom(c).SetErrorStage("not_found")
		return c.JSON(http.StatusNotFound, errorResponse{Error: fmt.Sprintf("Task with ID '%s' not found", id)})
	default:
		metricsFrom(c).SetErrorStage("storage")
		logger.WithError(err).WithField("route", c.Path()).Error("task request failed")
		return c.JSON(http.StatusInternalServerError, errorResponse{Error: "internal server error"})
	}
}
