package api

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"usersvc/internal/adapters/api/middleware"
	"usersvc/internal/domain/user"
)

const (
	dateLayout   = "2006-01-02"
	maxListLimit = 100
)

// UserCreateRequest represents a request to create a new user
type UserCreateRequest struct {
	Name     string     `json:"name" binding:"required,max=255" example:"Jane Doe"`
	Age      *int       `json:"age" binding:"required,gte=0,lte=150" example:"28"`
	Email    string     `json:"email" binding:"required,email,max=320" example:"jane.doe@example.com"`
	Birthday string     `json:"birthday" binding:"required" example:"1996-01-25"`
	DateTime *time.Time `json:"datetime" example:"2024-10-23T14:30:00Z"`
}

// UserUpdateRequest represents a partial update. Omitted fields are kept.
type UserUpdateRequest struct {
	Name     *string    `json:"name" binding:"omitempty,min=1,max=255"`
	Age      *int       `json:"age" binding:"omitempty,gte=0,lte=150"`
	Email    *string    `json:"email" binding:"omitempty,email,max=320"`
	Birthday *string    `json:"birthday" example:"1996-01-25"`
	DateTime *time.Time `json:"datetime"`
}

// UserResponse is the wire form of a user
type UserResponse struct {
	ID       int64      `json:"id" example:"1"`
	Name     string     `json:"name" example:"Jane Doe"`
	Age      int        `json:"age" example:"28"`
	Email    string     `json:"email" example:"jane.doe@example.com"`
	Birthday string     `json:"birthday" example:"1996-01-25"`
	DateTime *time.Time `json:"datetime,omitempty"`
}

func toUserResponse(u *user.User) UserResponse {
	return UserResponse{
		ID:       u.ID,
		Name:     u.Name,
		Age:      u.Age,
		Email:    u.Email,
		Birthday: u.Birthday.Format(dateLayout),
		DateTime: u.DateTime,
	}
}

func parseDate(s string) (time.Time, bool) {
	t, err := time.Parse(dateLayout, strings.TrimSpace(s))
	return t, err == nil
}

func userIDParam(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("userId"), 10, 64)
	if err != nil || id <= 0 {
		badRequest(c, "userId must be a positive integer")
		return 0, false
	}
	return id, true
}

// ListUsers godoc
//
//	@Summary		List users
//	@Description	Users older than min_age, oldest first
//	@Tags			users
//	@Produce		json
//	@Param			min_age	query		int	false	"Only users strictly older than this"	default(0)
//	@Param			limit	query		int	false	"Maximum number of users"				default(5)
//	@Success		200		{array}		UserResponse
//	@Failure		400		{object}	map[string]string
//	@Failure		401		{object}	map[string]string
//	@Failure		403		{object}	map[string]string
//	@Failure		500		{object}	map[string]string
//	@Router			/users [get]
//	@Security		BearerAuth
func (h *Handler) ListUsers(c *gin.Context) {
	minAge, err := strconv.Atoi(c.DefaultQuery("min_age", "0"))
	if err != nil {
		badRequest(c, "min_age must be an integer")
		return
	}
	limit, err := strconv.Atoi(c.DefaultQuery("limit", strconv.Itoa(user.DefaultListLimit)))
	if err != nil || limit <= 0 || limit > maxListLimit {
		badRequest(c, "limit must be between 1 and 100")
		return
	}

	users, err := h.users.List(c.Request.Context(), user.ListQuery{MinAge: minAge, Limit: limit})
	if err != nil {
		respondError(c, err)
		return
	}

	out := make([]UserResponse, 0, len(users))
	for _, u := range users {
		out = append(out, toUserResponse(u))
	}
	c.JSON(http.StatusOK, out)
}

// GetUser godoc
//
//	@Summary		Get user
//	@Tags			users
//	@Produce		json
//	@Param			userId	path		int	true	"User ID"
//	@Success		200		{object}	UserResponse
//	@Failure		400		{object}	map[string]string
//	@Failure		404		{object}	map[string]string
//	@Failure		500		{object}	map[string]string
//	@Router			/users/user/{userId} [get]
//	@Security		BearerAuth
func (h *Handler) GetUser(c *gin.Context) {
	id, ok := userIDParam(c)
	if !ok {
		return
	}

	u, err := h.users.Get(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, toUserResponse(u))
}

// CreateUser godoc
//
//	@Summary		Create user
//	@Tags			users
//	@Accept			json
//	@Produce		json
//	@Param			user	body		UserCreateRequest	true	"User to create"
//	@Success		201		{object}	UserResponse
//	@Failure		400		{object}	map[string]string
//	@Failure		409		{object}	map[string]string
//	@Failure		500		{object}	map[string]string
//	@Router			/users [post]
//	@Security		BearerAuth
func (h *Handler) CreateUser(c *gin.Context) {
	var req UserCreateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid request body")
		return
	}
	birthday, ok := parseDate(req.Birthday)
	if !ok {
		badRequest(c, "birthday must be a date (YYYY-MM-DD)")
		return
	}

	u := &user.User{
		Name:     strings.TrimSpace(req.Name),
		Age:      *req.Age,
		Email:    strings.TrimSpace(req.Email),
		Birthday: birthday,
		DateTime: req.DateTime,
	}
	if err := h.users.Create(c.Request.Context(), u); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, toUserResponse(u))
}

// UpdateUser godoc
//
//	@Summary		Update user
//	@Description	Only fields present in the body are changed
//	@Tags			users
//	@Accept			json
//	@Produce		json
//	@Param			userId	path		int					true	"User ID"
//	@Param			user	body		UserUpdateRequest	true	"Fields to change"
//	@Success		200		{object}	UserResponse
//	@Failure		400		{object}	map[string]string
//	@Failure		404		{object}	map[string]string
//	@Failure		409		{object}	map[string]string
//	@Failure		500		{object}	map[string]string
//	@Router			/users/user/{userId} [put]
//	@Security		BearerAuth
func (h *Handler) UpdateUser(c *gin.Context) {
	id, ok := userIDParam(c)
	if !ok {
		return
	}

	var req UserUpdateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid request body")
		return
	}

	patch := user.Patch{
		Name:     req.Name,
		Age:      req.Age,
		Email:    req.Email,
		DateTime: req.DateTime,
	}
	if req.Birthday != nil {
		birthday, ok := parseDate(*req.Birthday)
		if !ok {
			badRequest(c, "birthday must be a date (YYYY-MM-DD)")
			return
		}
		patch.Birthday = &birthday
	}

	u, err := h.users.Update(c.Request.Context(), id, patch)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, toUserResponse(u))
}

// DeleteUser godoc
//
//	@Summary		Delete user
//	@Tags			users
//	@Param			userId	path	int	true	"User ID"
//	@Success		204
//	@Failure		400	{object}	map[string]string
//	@Failure		404	{object}	map[string]string
//	@Failure		500	{object}	map[string]string
//	@Router			/users/user/{userId} [delete]
//	@Security		BearerAuth
func (h *Handler) DeleteUser(c *gin.Context) {
	id, ok := userIDParam(c)
	if !ok {
		return
	}

	if err := h.users.Delete(c.Request.Context(), id); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// GetCurrentUser godoc
//
//	@Summary		Get current caller
//	@Description	The authenticated principal and its granted scopes
//	@Tags			users
//	@Produce		json
//	@Success		200	{object}	auth.Principal
//	@Failure		401	{object}	map[string]string
//	@Router			/users/me [get]
//	@Security		BearerAuth
func (h *Handler) GetCurrentUser(c *gin.Context) {
	principal, err := middleware.MustPrincipal(c)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "not authenticated"})
		return
	}
	c.JSON(http.StatusOK, principal)
}
