package httpapi

import (
	"net/http"

	"teamgate.org/internal/audit"
)

type createTeamRequest struct {
	Name string `json:"name"`
}

type createGroupRequest struct {
	TeamID      string `json:"team_id"`
	Name        string `json:"name"`
	Description string `json:"description"`
}

type groupMemberRequest struct {
	UserID string `json:"user_id"`
}

type groupRoleRequest struct {
	RoleID string `json:"role_id"`
}

type roleRequest struct {
	Name        string              `json:"name"`
	Description string              `json:"description"`
	Permissions map[string][]string `json:"permissions"`
}

// Directory reads and writes are scoped to the caller's tenant; the tenant
// id is never accepted from the client.

func (a *API) handleListTeams(w http.ResponseWriter, r *http.Request) {
	user, ok := requestUser(w, r)
	if !ok {
		return
	}
	teams, err := a.directory.TeamSummaries(r.Context(), user.TenantID)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"teams": teams})
}

func (a *API) handleCreateTeam(w http.ResponseWriter, r *http.Request) {
	user, ok := requestUser(w, r)
	if !ok {
		return
	}
	var req createTeamRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	team, err := a.directory.CreateTeam(r.Context(), user.TenantID, req.Name)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	_ = audit.LogEvent(r.Context(), "directory.team.created", map[string]any{
		"team_id": team.ID,
	})
	writeJSON(w, http.StatusCreated, team)
}

func (a *API) handleTeamMembers(w http.ResponseWriter, r *http.Request) {
	user, ok := requestUser(w, r)
	if !ok {
		return
	}
	team, err := a.directory.Team(r.Context(), user.TenantID, r.PathValue("id"))
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	members, err := a.directory.TeamMembers(r.Context(), team.ID)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"team": team, "members": members})
}

func (a *API) handleListUsers(w http.ResponseWriter, r *http.Request) {
	user, ok := requestUser(w, r)
	if !ok {
		return
	}
	users, err := a.directory.UsersByTenant(r.Context(), user.TenantID, r.URL.Query().Get("team_id"))
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"users": users})
}

func (a *API) handleListGroups(w http.ResponseWriter, r *http.Request) {
	user, ok := requestUser(w, r)
	if !ok {
		return
	}
	groups, err := a.directory.GroupSummaries(r.Context(), user.TenantID, r.URL.Query().Get("team_id"))
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"groups": groups})
}

func (a *API) handleCreateGroup(w http.ResponseWriter, r *http.Request) {
	user, ok := requestUser(w, r)
	if !ok {
		return
	}
	var req createGroupRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	group, err := a.directory.CreateGroup(r.Context(), user.TenantID, req.TeamID, req.Name, req.Description)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	_ = audit.LogEvent(r.Context(), "directory.group.created", map[string]any{
		"group_id": group.ID,
		"team_id":  group.TeamID,
	})
	writeJSON(w, http.StatusCreated, group)
}

func (a *API) handleGroupDetail(w http.ResponseWriter, r *http.Request) {
	if _, ok := requestUser(w, r); !ok {
		return
	}
	detail, err := a.directory.GroupDetail(r.Context(), r.PathValue("id"))
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, detail)
}

func (a *API) handleDeleteGroup(w http.ResponseWriter, r *http.Request) {
	if _, ok := requestUser(w, r); !ok {
		return
	}
	groupID := r.PathValue("id")
	if err := a.directory.DeleteGroup(r.Context(), groupID); err != nil {
		handleServiceError(w, r, err)
		return
	}
	_ = audit.LogEvent(r.Context(), "directory.group.deleted", map[string]any{
		"group_id": groupID,
	})
	w.WriteHeader(http.StatusNoContent)
}

func (a *API) handleAddGroupMember(w http.ResponseWriter, r *http.Request) {
	if _, ok := requestUser(w, r); !ok {
		return
	}
	var req groupMemberRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	groupID := r.PathValue("id")
	if err := a.directory.AddGroupMember(r.Context(), groupID, req.UserID); err != nil {
		handleServiceError(w, r, err)
		return
	}
	_ = audit.LogEvent(r.Context(), "directory.group.member_added", map[string]any{
		"group_id": groupID,
		"user_id":  req.UserID,
	})
	w.WriteHeader(http.StatusNoContent)
}

func (a *API) handleRemoveGroupMember(w http.ResponseWriter, r *http.Request) {
	if _, ok := requestUser(w, r); !ok {
		return
	}
	groupID := r.PathValue("id")
	userID := r.PathValue("userID")
	if err := a.directory.RemoveGroupMember(r.Context(), groupID, userID); err != nil {
		handleServiceError(w, r, err)
		return
	}
	_ = audit.LogEvent(r.Context(), "directory.group.member_removed", map[string]any{
		"group_id": groupID,
		"user_id":  userID,
	})
	w.WriteHeader(http.StatusNoContent)
}

func (a *API) handleAssignRole(w http.ResponseWriter, r *http.Request) {
	if _, ok := requestUser(w, r); !ok {
		return
	}
	var req groupRoleRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	groupID := r.PathValue("id")
	if err := a.directory.AssignRoleToGroup(r.Context(), groupID, req.RoleID); err != nil {
		handleServiceError(w, r, err)
		return
	}
	_ = audit.LogEvent(r.Context(), "directory.group.role_assigned", map[string]any{
		"group_id": groupID,
		"role_id":  req.RoleID,
	})
	w.WriteHeader(http.StatusNoContent)
}

func (a *API) handleUnassignRole(w http.ResponseWriter, r *http.Request) {
	if _, ok := requestUser(w, r); !ok {
		return
	}
	groupID := r.PathValue("id")
	roleID := r.PathValue("roleID")
	if err := a.directory.UnassignRoleFromGroup(r.Context(), groupID, roleID); err != nil {
		handleServiceError(w, r, err)
		return
	}
	_ = audit.LogEvent(r.Context(), "directory.group.role_unassigned", map[string]any{
		"group_id": groupID,
		"role_id":  roleID,
	})
	w.WriteHeader(http.StatusNoContent)
}

func (a *API) handleListRoles(w http.ResponseWriter, r *http.Request) {
	if _, ok := requestUser(w, r); !ok {
		return
	}
	roles, err := a.directory.Roles(r.Context())
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"roles": roles})
}

func (a *API) handleCreateRole(w http.ResponseWriter, r *http.Request) {
	if _, ok := requestUser(w, r); !ok {
		return
	}
	var req roleRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	role, err := a.directory.CreateRole(r.Context(), req.Name, req.Description, req.Permissions)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	_ = audit.LogEvent(r.Context(), "directory.role.created", map[string]any{
		"role_id": role.ID,
		"name":    role.Name,
	})
	writeJSON(w, http.StatusCreated, role)
}

func (a *API) handleGetRole(w http.ResponseWriter, r *http.Request) {
	if _, ok := requestUser(w, r); !ok {
		return
	}
	role, err := a.directory.Role(r.Context(), r.PathValue("id"))
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, role)
}

func (a *API) handleUpdateRole(w http.ResponseWriter, r *http.Request) {
	if _, ok := requestUser(w, r); !ok {
		return
	}
	var req roleRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	role, err := a.directory.UpdateRole(r.Context(), r.PathValue("id"), req.Description, req.Permissions)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	_ = audit.LogEvent(r.Context(), "directory.role.updated", map[string]any{
		"role_id": role.ID,
	})
	writeJSON(w, http.StatusOK, role)
}

func (a *API) handleDeleteRole(w http.ResponseWriter, r *http.Request) {
	if _, ok := requestUser(w, r); !ok {
		return
	}
	roleID := r.PathValue("id")
	if err := a.directory.DeleteRole(r.Context(), roleID); err != nil {
		handleServiceError(w, r, err)
		return
	}
	_ = audit.LogEvent(r.Context(), "directory.role.deleted", map[string]any{
		"role_id": roleID,
	})
	w.WriteHeader(http.StatusNoContent)
}
