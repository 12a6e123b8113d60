// Package handlers exposes the HTTP API: account management, session tokens,
// and task endpoints, built on gin.
package handlers

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/vettta06/devteam-ai/internal/logging"
	"github.com/vettta06/devteam-ai/internal/server/models"
	"github.com/vettta06/devteam-ai/internal/server/planner"
	"github.com/vettta06/devteam-ai/internal/server/services"
)

// UserService is the account and session surface the HTTP layer depends on.
// *services.UserService implements it.
type UserService interface {
	Register(ctx context.Context, email, password string) (*models.User, error)
	ConfirmEmail(ctx context.Context, token string) (*models.User, error)
	Login(ctx context.Context, email, password string) (*services.TokenPair, error)
	Authenticate(ctx context.Context, accessToken string) (*models.User, error)
	Refresh(ctx context.Context, refreshToken string) (*services.TokenPair, error)
	Logout(ctx context.Context, refreshToken string) error
	GetByEmail(ctx context.Context, email string) (*models.User, error)
	UpdateProfile(ctx context.Context, userID string, params services.UpdateProfileParams) (*models.User, error)
	List(ctx context.Context, skip, limit int) ([]*models.User, error)
	Delete(ctx context.Context, userID string) error
}

// TaskService is the task surface the HTTP layer depends on.
// *services.TaskService implements it.
type TaskService interface {
	Create(ctx context.Context, userID string, params services.CreateTaskParams) (*models.Task, error)
	Get(ctx context.Context, userID, taskID string) (*models.Task, error)
	List(ctx context.Context, userID string, skip, limit int) ([]*models.Task, error)
	Update(ctx context.Context, userID, taskID string, params services.UpdateTaskParams) (*models.Task, error)
	Delete(ctx context.Context, userID, taskID string) error
	Subtasks(ctx context.Context, userID, taskID string) ([]*models.Subtask, error)
	UpdateSubtaskStatus(ctx context.Context, userID, subtaskID, status string) error
	Split(ctx context.Context, userID, taskID string) (*planner.Plan, error)
}

type HTTPServer struct {
	address string
	users   UserService
	tasks   TaskService
	logger  logging.Logger
}

func NewHTTPServer(address string, l logging.Logger, us UserService, ts TaskService) *HTTPServer {
	return &HTTPServer{
		address: address,
		users:   us,
		tasks:   ts,
		logger:  l.With("module", "http_server"),
	}
}

// Router builds the gin engine with all API routes.
func (s *HTTPServer) Router() *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())

	r.GET("/ping", s.ping)

	r.POST("/users", s.register)
	r.GET("/confirm-email/:token", s.confirmEmail)
	r.POST("/login", s.login)
	r.POST("/refresh", s.refresh)
	r.POST("/logout", s.logout)

	authed := r.Group("/", s.requireAuth)
	{
		authed.GET("/users/me", s.me)
		authed.PUT("/users/me", s.updateMe)
		authed.GET("/users/:email", s.getUserByEmail)

		authed.POST("/tasks", s.createTask)
		authed.GET("/tasks", s.listTasks)
		authed.GET("/tasks/:id", s.getTask)
		authed.PUT("/tasks/:id", s.updateTask)
		authed.DELETE("/tasks/:id", s.deleteTask)
		authed.GET("/tasks/:id/subtasks", s.listSubtasks)
		authed.PUT("/tasks/subtasks/:id", s.updateSubtaskStatus)
		authed.POST("/tasks/:id/split", s.splitTask)
	}

	admin := r.Group("/", s.requireAuth, s.requireAdmin)
	{
		admin.GET("/users", s.listUsers)
		admin.DELETE("/users/:id", s.deleteUser)
	}

	return r
}

// Run serves the API until ctx is cancelled, then shuts down gracefully.
func (s *HTTPServer) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:    s.address,
		Handler: s.Router(),
	}

	go func() {
		<-ctx.Done()
		s.logger.Info(ctx, "Stopping HTTP server...")
		if err := srv.Shutdown(context.Background()); err != nil {
			s.logger.Error(ctx, err.Error())
		}
	}()

	s.logger.Info(ctx, "Starting HTTP server", "address", s.address)

	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *HTTPServer) ping(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "OK"})
}
