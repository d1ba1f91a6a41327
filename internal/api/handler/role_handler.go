package handler

import (
	"net/http"
	"net/url"

	"github.com/labstack/echo/v4"

	"github.com/fabricwh/rbac-api/internal/core/domain"
	"github.com/fabricwh/rbac-api/internal/core/ports"
)

// RoleHandler handles role lifecycle and permission assignment.
type RoleHandler struct {
	service ports.RoleService
}

func NewRoleHandler(service ports.RoleService) *RoleHandler {
	return &RoleHandler{service: service}
}

// List handles GET /v1/roles.
//
// @Summary      List roles
// @Tags         roles
// @Produce      json
// @Security     BearerAuth
// @Param        search  query     string  false  "Substring of the role name"
// @Param        page    query     int     false  "Page number"  default(1)
// @Param        limit   query     int     false  "Items per page (max 100)"  default(10)
// @Param        sortBy  query     string  false  "name, createdAt or updatedAt"
// @Param        order   query     string  false  "asc or desc"
// @Success      200     {object}  listResponse[roleResponse]
// @Failure      403     {object}  errorResponse
// @Router       /v1/roles [get]
func (h *RoleHandler) List(c echo.Context) error {
	filter, err := roleFilterQuery(c)
	if err != nil {
		return err
	}

	page, err := h.service.List(c.Request().Context(), filter)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, listResponse[roleResponse]{
		Message:    "roles loaded",
		Data:       toRoleResponses(page.Items),
		Pagination: page.Pagination,
	})
}

// Create handles POST /v1/roles.
//
// @Summary      Create a role
// @Tags         roles
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        body  body      createRoleRequest  true  "Role name and optional permission keys"
// @Success      201   {object}  roleEnvelope
// @Failure      400   {object}  errorResponse
// @Failure      409   {object}  errorResponse
// @Router       /v1/roles [post]
func (h *RoleHandler) Create(c echo.Context) error {
	var req createRoleRequest
	if err := bind(c, &req); err != nil {
		return err
	}

	role, err := h.service.Create(c.Request().Context(), req.Name, toKeys(req.Permissions))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, roleEnvelope{Message: "role created", Role: toRoleResponse(role)})
}

// Get handles GET /v1/roles/:name.
//
// @Summary      Get a role
// @Tags         roles
// @Produce      json
// @Security     BearerAuth
// @Param        name  path      string  true  "Role name"
// @Success      200   {object}  roleEnvelope
// @Failure      404   {object}  errorResponse
// @Router       /v1/roles/{name} [get]
func (h *RoleHandler) Get(c echo.Context) error {
	role, err := h.service.Get(c.Request().Context(), c.Param("name"))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, roleEnvelope{Message: "role loaded", Role: toRoleResponse(role)})
}

// Rename handles PUT /v1/roles/:name. Users and assignments follow the new name.
//
// @Summary      Rename a role
// @Tags         roles
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        name  path      string             true  "Current role name"
// @Param        body  body      renameRoleRequest  true  "New name"
// @Success      200   {object}  roleEnvelope
// @Failure      400   {object}  errorResponse
// @Failure      404   {object}  errorResponse
// @Failure      409   {object}  errorResponse
// @Router       /v1/roles/{name} [put]
func (h *RoleHandler) Rename(c echo.Context) error {
	var req renameRoleRequest
	if err := bind(c, &req); err != nil {
		return err
	}

	role, err := h.service.Rename(c.Request().Context(), c.Param("name"), req.Name)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, roleEnvelope{Message: "role updated", Role: toRoleResponse(role)})
}

// Delete handles DELETE /v1/roles/:name. Roles held by live users are refused
// with the holders listed.
//
// @Summary      Delete a role
// @Tags         roles
// @Produce      json
// @Security     BearerAuth
// @Param        name  path      string  true  "Role name"
// @Success      200   {object}  messageResponse
// @Failure      400   {object}  errorResponse
// @Failure      404   {object}  errorResponse
// @Router       /v1/roles/{name} [delete]
func (h *RoleHandler) Delete(c echo.Context) error {
	if err := h.service.Delete(c.Request().Context(), c.Param("name")); err != nil {
		return err
	}
	return c.JSON(http.StatusOK, messageResponse{Message: "role deleted"})
}

// Permissions handles GET /v1/roles/:name/permissions.
//
// @Summary      List a role's permissions
// @Tags         roles
// @Produce      json
// @Security     BearerAuth
// @Param        name  path      string  true  "Role name"
// @Success      200   {object}  permissionListResponse
// @Failure      404   {object}  errorResponse
// @Router       /v1/roles/{name}/permissions [get]
func (h *RoleHandler) Permissions(c echo.Context) error {
	role, err := h.service.Get(c.Request().Context(), c.Param("name"))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, permissionListResponse{
		Message: "role permissions loaded",
		Data:    toPermissionResponses(role.Permissions),
	})
}

// SetPermissions handles PUT /v1/roles/:name/permissions and replaces the set.
//
// @Summary      Replace a role's permissions
// @Tags         roles
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        name  path      string              true  "Role name"
// @Param        body  body      permissionsRequest  true  "Complete permission key list"
// @Success      200   {object}  roleEnvelope
// @Failure      400   {object}  errorResponse
// @Failure      404   {object}  errorResponse
// @Router       /v1/roles/{name}/permissions [put]
func (h *RoleHandler) SetPermissions(c echo.Context) error {
	var req permissionsRequest
	if err := bind(c, &req); err != nil {
		return err
	}

	role, err := h.service.SetPermissions(c.Request().Context(), c.Param("name"), toKeys(req.Permissions))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, roleEnvelope{Message: "role permissions replaced", Role: toRoleResponse(role)})
}

// GrantPermissions handles POST /v1/roles/:name/permissions.
//
// @Summary      Grant permissions to a role
// @Tags         roles
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        name  path      string              true  "Role name"
// @Param        body  body      permissionsRequest  true  "Permission keys to add"
// @Success      200   {object}  roleEnvelope
// @Failure      400   {object}  errorResponse
// @Failure      404   {object}  errorResponse
// @Router       /v1/roles/{name}/permissions [post]
func (h *RoleHandler) GrantPermissions(c echo.Context) error {
	var req permissionsRequest
	if err := bind(c, &req); err != nil {
		return err
	}

	role, err := h.service.GrantPermissions(c.Request().Context(), c.Param("name"), toKeys(req.Permissions))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, roleEnvelope{Message: "permissions granted", Role: toRoleResponse(role)})
}

// RevokePermission handles DELETE /v1/roles/:name/permissions/:key.
//
// @Summary      Revoke a permission from a role
// @Tags         roles
// @Produce      json
// @Security     BearerAuth
// @Param        name  path      string  true  "Role name"
// @Param        key   path      string  true  "Permission key, e.g. user:delete"
// @Success      200   {object}  roleEnvelope
// @Failure      400   {object}  errorResponse
// @Failure      404   {object}  errorResponse
// @Router       /v1/roles/{name}/permissions/{key} [delete]
func (h *RoleHandler) RevokePermission(c echo.Context) error {
	raw, err := url.PathUnescape(c.Param("key"))
	if err != nil {
		return domain.NewFieldValidation("key", "malformed permission key")
	}
	key := domain.NormalizeKey(raw)

	role, err := h.service.RevokePermission(c.Request().Context(), c.Param("name"), key)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, roleEnvelope{Message: "permission revoked", Role: toRoleResponse(role)})
}

// ListPermissions handles GET /v1/permissions.
//
// @Summary      List every known permission
// @Tags         permissions
// @Produce      json
// @Security     BearerAuth
// @Success      200  {object}  permissionListResponse
// @Failure      403  {object}  errorResponse
// @Router       /v1/permissions [get]
func (h *RoleHandler) ListPermissions(c echo.Context) error {
	perms, err := h.service.ListPermissions(c.Request().Context())
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, permissionListResponse{Message: "permissions loaded", Data: toPermissionResponses(perms)})
}
