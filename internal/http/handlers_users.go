package httpx

import (
	"net/http"
	"strings"

	domainauth "github.com/target/municipal-portal/internal/domain/auth"
)

const usersPath = "/admin/users"

// AdminIndex sends /admin to the user list.
func (h *UIHandlers) AdminIndex(w http.ResponseWriter, r *http.Request) {
	navigate(w, r, usersPath)
}

// UsersPage lists every user for administrators.
func (h *UIHandlers) UsersPage(w http.ResponseWriter, r *http.Request) {
	store, _ := h.caller(r)
	users, err := h.Users.List(r.Context(), store)
	if err != nil {
		h.handleError(w, r, err)
		return
	}
	data := NewTemplateData(r, PageMeta{Title: "Usuários", PageTitle: "Gerenciar Usuários", CurrentPage: PageUsers}).
		With("Users", users).
		With("CurrentUserID", store.State().Identity.ID).
		Build()
	h.renderPage(w, r, http.StatusOK, data)
}

// userForm mirrors the user form fields for re-rendering.
type userForm struct {
	ID       string
	Email    string
	Username string
	Role     string
	Active   bool
}

func userFormFrom(u domainauth.Identity) userForm {
	return userForm{ID: u.ID, Email: u.Email, Username: u.Username, Role: string(u.Role), Active: u.Active}
}

func (h *UIHandlers) renderUserForm(w http.ResponseWriter, r *http.Request, f userForm, errs map[string]string) {
	mode := FormModeCreate
	title := "Novo Usuário"
	if f.ID != "" {
		mode = FormModeEdit
		title = "Editar Usuário"
	}
	b := NewTemplateData(r, PageMeta{Title: title, PageTitle: title, CurrentPage: PageUserForm}).
		With("Mode", string(mode)).
		With("Form", f).
		With("Roles", []domainauth.Role{domainauth.RoleUser, domainauth.RoleAdmin}).
		WithFieldErrors(errs)
	status := http.StatusOK
	if len(errs) > 0 {
		b.WithError(msgFixBelow)
		if !IsHTMX(r) {
			status = http.StatusUnprocessableEntity
		}
	}
	h.renderPage(w, r, status, b.Build())
}

// NewUser renders an empty user form.
func (h *UIHandlers) NewUser(w http.ResponseWriter, r *http.Request) {
	h.renderUserForm(w, r, userForm{Role: string(domainauth.RoleUser), Active: true}, nil)
}

// EditUser renders the form for an existing user.
func (h *UIHandlers) EditUser(w http.ResponseWriter, r *http.Request) {
	store, _ := h.caller(r)
	u, err := h.Users.Get(r.Context(), store, r.PathValue("id"))
	if err != nil {
		h.handleError(w, r, err)
		return
	}
	h.renderUserForm(w, r, userFormFrom(u), nil)
}

// readUserForm parses the posted user fields.
func readUserForm(r *http.Request) (userForm, domainauth.UserInput, error) {
	if err := r.ParseForm(); err != nil {
		return userForm{}, domainauth.UserInput{}, err
	}
	active := r.PostFormValue("is_active") == "on" || r.PostFormValue("is_active") == "true"
	f := userForm{
		ID:       r.PathValue("id"),
		Email:    strings.TrimSpace(r.PostFormValue("email")),
		Username: strings.TrimSpace(r.PostFormValue("username")),
		Role:     r.PostFormValue("role"),
		Active:   active,
	}
	in := domainauth.UserInput{
		Email:    f.Email,
		Username: f.Username,
		Password: r.PostFormValue("password"),
		Role:     domainauth.Role(f.Role),
		Active:   &active,
	}
	return f, in, nil
}

// CreateUser creates a user from the posted form.
func (h *UIHandlers) CreateUser(w http.ResponseWriter, r *http.Request) {
	h.saveUser(w, r)
}

// UpdateUser applies the posted form to an existing user.
func (h *UIHandlers) UpdateUser(w http.ResponseWriter, r *http.Request) {
	h.saveUser(w, r)
}

func (h *UIHandlers) saveUser(w http.ResponseWriter, r *http.Request) {
	store, _ := h.caller(r)
	f, in, err := readUserForm(r)
	if err != nil {
		h.renderUserForm(w, r, f, map[string]string{"_form": "Formulário inválido"})
		return
	}
	msg := "Usuário criado"
	if f.ID == "" {
		_, err = h.Users.Create(r.Context(), store, in)
	} else {
		_, err = h.Users.Update(r.Context(), store, f.ID, in)
		msg = "Usuário atualizado"
	}
	if errs, ok := formErrors(err); ok {
		h.renderUserForm(w, r, f, errs)
		return
	}
	if err != nil {
		h.handleError(w, r, err)
		return
	}
	triggerToast(w, msg, "success")
	if f.ID != "" && f.ID == store.State().Identity.ID {
		// Role or status of the signed-in user may have changed.
		if st := h.Auth.Refresh(r.Context(), store); !st.HasRole(domainauth.RoleAdmin) {
			navigateFull(w, r, h.Landings.Unauthorized)
			return
		}
	}
	navigate(w, r, usersPath)
}

// DeleteUser removes a user. Administrators cannot delete themselves.
func (h *UIHandlers) DeleteUser(w http.ResponseWriter, r *http.Request) {
	store, _ := h.caller(r)
	id := r.PathValue("id")
	if id == store.State().Identity.ID {
		triggerToast(w, "Você não pode excluir o próprio usuário", "error")
		navigate(w, r, usersPath)
		return
	}
	if err := h.Users.Delete(r.Context(), store, id); err != nil {
		h.handleError(w, r, err)
		return
	}
	triggerToast(w, "Usuário excluído", "success")
	navigate(w, r, usersPath)
}
