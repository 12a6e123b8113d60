package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/vettta06/devteam-ai/internal/server/services"
)

func (s *HTTPServer) createTask(c *gin.Context) {
	var req createTaskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	task, err := s.tasks.Create(c.Request.Context(), currentUser(c).ID, services.CreateTaskParams{
		Title:        req.Title,
		Description:  req.Description,
		Status:       req.Status,
		ParentTaskID: req.ParentTaskID,
	})
	if err != nil {
		s.writeError(c, err)
		return
	}

	c.JSON(http.StatusCreated, toTaskResponse(task))
}

func (s *HTTPServer) listTasks(c *gin.Context) {
	skip, limit := pagination(c)

	tasks, err := s.tasks.List(c.Request.Context(), currentUser(c).ID, skip, limit)
	if err != nil {
		s.writeError(c, err)
		return
	}

	out := make([]taskResponse, 0, len(tasks))
	for _, t := range tasks {
		out = append(out, toTaskResponse(t))
	}
	c.JSON(http.StatusOK, out)
}

func (s *HTTPServer) getTask(c *gin.Context) {
	task, err := s.tasks.Get(c.Request.Context(), currentUser(c).ID, c.Param("id"))
	if err != nil {
		s.writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, toTaskResponse(task))
}

func (s *HTTPServer) updateTask(c *gin.Context) {
	var req updateTaskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	task, err := s.tasks.Update(c.Request.Context(), currentUser(c).ID, c.Param("id"), services.UpdateTaskParams{
		Title:       req.Title,
		Description: req.Description,
		Status:      req.Status,
	})
	if err != nil {
		s.writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, toTaskResponse(task))
}

func (s *HTTPServer) deleteTask(c *gin.Context) {
	if err := s.tasks.Delete(c.Request.Context(), currentUser(c).ID, c.Param("id")); err != nil {
		s.writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "task deleted"})
}

func (s *HTTPServer) listSubtasks(c *gin.Context) {
	subtasks, err := s.tasks.Subtasks(c.Request.Context(), currentUser(c).ID, c.Param("id"))
	if err != nil {
		s.writeError(c, err)
		return
	}

	out := make([]subtaskResponse, 0, len(subtasks))
	for _, sub := range subtasks {
		out = append(out, toSubtaskResponse(sub))
	}
	c.JSON(http.StatusOK, out)
}

func (s *HTTPServer) updateSubtaskStatus(c *gin.Context) {
	var req updateSubtaskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	if err := s.tasks.UpdateSubtaskStatus(c.Request.Context(), currentUser(c).ID, c.Param("id"), req.Status); err != nil {
		s.writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "subtask updated"})
}

func (s *HTTPServer) splitTask(c *gin.Context) {
	plan, err := s.tasks.Split(c.Request.Context(), currentUser(c).ID, c.Param("id"))
	if err != nil {
		s.writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, plan)
}
