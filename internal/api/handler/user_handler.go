package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/fabricwh/rbac-api/internal/core/domain"
	"github.com/fabricwh/rbac-api/internal/core/ports"
)

// UserHandler handles HTTP requests for account administration.
type UserHandler struct {
	service ports.UserService
}

func NewUserHandler(service ports.UserService) *UserHandler {
	return &UserHandler{service: service}
}

// List handles GET /v1/users.
//
// @Summary      List users
// @Tags         users
// @Produce      json
// @Security     BearerAuth
// @Param        search       query     string  false  "Substring of username, email, fullname or phone"
// @Param        status       query     string  false  "ACTIVE, INACTIVE or SUSPENDED"
// @Param        role         query     string  false  "Role name"
// @Param        gender       query     string  false  "MALE, FEMALE or OTHER"
// @Param        createdFrom  query     string  false  "Lower bound on creation date"
// @Param        createdTo    query     string  false  "Upper bound on creation date"
// @Param        page         query     int     false  "Page number"  default(1)
// @Param        limit        query     int     false  "Items per page (max 100)"  default(10)
// @Param        sortBy       query     string  false  "Comma-separated sort fields"
// @Param        order        query     string  false  "Comma-separated asc/desc"
// @Success      200          {object}  listResponse[userResponse]
// @Failure      400          {object}  errorResponse
// @Failure      401          {object}  errorResponse
// @Failure      403          {object}  errorResponse
// @Router       /v1/users [get]
func (h *UserHandler) List(c echo.Context) error {
	filter, err := userFilterQuery(c)
	if err != nil {
		return err
	}

	page, err := h.service.List(c.Request().Context(), filter)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, listResponse[userResponse]{
		Message:    "users loaded",
		Data:       toUserResponses(page.Items),
		Pagination: page.Pagination,
	})
}

// Create handles POST /v1/users.
//
// @Summary      Create a user
// @Tags         users
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        body  body      createUserRequest  true  "Account details"
// @Success      201   {object}  userEnvelope
// @Failure      400   {object}  errorResponse
// @Failure      404   {object}  errorResponse
// @Failure      409   {object}  errorResponse
// @Router       /v1/users [post]
func (h *UserHandler) Create(c echo.Context) error {
	var req createUserRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	profile, err := toProfile(req.profileRequest)
	if err != nil {
		return err
	}

	user, err := h.service.Create(c.Request().Context(), ports.CreateUserInput{
		Username: req.Username,
		Password: req.Password,
		Email:    req.Email,
		Role:     req.Role,
		Status:   domain.UserStatus(req.Status),
		Profile:  profile,
	})
	if err != nil {
		return err
	}

	return c.JSON(http.StatusCreated, userEnvelope{Message: "user created", User: toUserResponse(user)})
}

// Get handles GET /v1/users/:id. Users may always read their own record.
//
// @Summary      Get a user
// @Tags         users
// @Produce      json
// @Security     BearerAuth
// @Param        id   path      string  true  "User ID"
// @Success      200  {object}  userEnvelope
// @Failure      403  {object}  errorResponse
// @Failure      404  {object}  errorResponse
// @Router       /v1/users/{id} [get]
func (h *UserHandler) Get(c echo.Context) error {
	user, err := h.service.Get(c.Request().Context(), c.Param("id"))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, userEnvelope{Message: "user loaded", User: toUserResponse(user)})
}

// Update handles PUT /v1/users/:id.
//
// @Summary      Update a user's profile
// @Tags         users
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id    path      string                true  "User ID"
// @Param        body  body      profileUpdateRequest  true  "Fields to change"
// @Success      200   {object}  userEnvelope
// @Failure      400   {object}  errorResponse
// @Failure      404   {object}  errorResponse
// @Failure      409   {object}  errorResponse
// @Router       /v1/users/{id} [put]
func (h *UserHandler) Update(c echo.Context) error {
	var req profileUpdateRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	upd, err := toProfileUpdate(req)
	if err != nil {
		return err
	}

	user, err := h.service.Update(c.Request().Context(), c.Param("id"), upd)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, userEnvelope{Message: "user updated", User: toUserResponse(user)})
}

// ChangeStatus handles PATCH /v1/users/:id/status.
//
// @Summary      Change a user's status
// @Tags         users
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id    path      string         true  "User ID"
// @Param        body  body      statusRequest  true  "New status"
// @Success      200   {object}  userEnvelope
// @Failure      400   {object}  errorResponse
// @Failure      404   {object}  errorResponse
// @Router       /v1/users/{id}/status [patch]
func (h *UserHandler) ChangeStatus(c echo.Context) error {
	var req statusRequest
	if err := bind(c, &req); err != nil {
		return err
	}

	user, err := h.service.ChangeStatus(c.Request().Context(), c.Param("id"), domain.UserStatus(req.Status))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, userEnvelope{Message: "user status updated", User: toUserResponse(user)})
}

// ChangeRole handles PATCH /v1/users/:id/role.
//
// @Summary      Reassign a user's role
// @Tags         users
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id    path      string                 true  "User ID"
// @Param        body  body      roleAssignmentRequest  true  "Role name"
// @Success      200   {object}  userEnvelope
// @Failure      400   {object}  errorResponse
// @Failure      404   {object}  errorResponse
// @Router       /v1/users/{id}/role [patch]
func (h *UserHandler) ChangeRole(c echo.Context) error {
	var req roleAssignmentRequest
	if err := bind(c, &req); err != nil {
		return err
	}

	user, err := h.service.ChangeRole(c.Request().Context(), c.Param("id"), req.Role)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, userEnvelope{Message: "user role updated", User: toUserResponse(user)})
}

// Delete handles DELETE /v1/users/:id. The account is soft-deleted.
//
// @Summary      Delete a user
// @Tags         users
// @Produce      json
// @Security     BearerAuth
// @Param        id   path      string  true  "User ID"
// @Success      200  {object}  messageResponse
// @Failure      404  {object}  errorResponse
// @Router       /v1/users/{id} [delete]
func (h *UserHandler) Delete(c echo.Context) error {
	if err := h.service.Delete(c.Request().Context(), c.Param("id")); err != nil {
		return err
	}
	return c.JSON(http.StatusOK, messageResponse{Message: "user deleted"})
}
