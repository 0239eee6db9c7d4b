package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	jmespath "github.com/jmespath-community/go-jmespath"

	domainauth "github.com/target/municipal-portal/internal/domain/auth"
	"github.com/target/municipal-portal/internal/domain/leadership"
	"github.com/target/municipal-portal/internal/domain/orders"
	apperrors "github.com/target/municipal-portal/internal/errors"
)

// ListUsers returns every user. Admin only.
func (c *Client) ListUsers(ctx context.Context, token string) ([]domainauth.Identity, error) {
	var users []domainauth.Identity
	if err := c.send(ctx, call{op: "list_users", method: http.MethodGet, path: "/api/admin/users", token: token, out: &users}); err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	return users, nil
}

// CreateUser creates a user. Admin only.
func (c *Client) CreateUser(ctx context.Context, token string, in domainauth.UserInput) (domainauth.Identity, error) {
	var user domainauth.Identity
	err := c.send(ctx, call{op: "create_user", method: http.MethodPost, path: "/api/admin/users", token: token, body: in, out: &user})
	if err != nil {
		return domainauth.Identity{}, fmt.Errorf("create user: %w", err)
	}
	return user, nil
}

// UpdateUser applies the non-empty fields of in to user id. Admin only.
func (c *Client) UpdateUser(ctx context.Context, token, id string, in domainauth.UserInput) (domainauth.Identity, error) {
	var user domainauth.Identity
	err := c.send(ctx, call{
		op:     "update_user",
		method: http.MethodPut,
		path:   "/api/admin/users/" + url.PathEscape(id),
		token:  token,
		body:   in,
		out:    &user,
	})
	if err != nil {
		return domainauth.Identity{}, fmt.Errorf("update user %s: %w", id, err)
	}
	return user, nil
}

// DeleteUser removes user id. Admin only.
func (c *Client) DeleteUser(ctx context.Context, token, id string) error {
	err := c.send(ctx, call{op: "delete_user", method: http.MethodDelete, path: "/api/admin/users/" + url.PathEscape(id), token: token})
	if err != nil {
		return fmt.Errorf("delete user %s: %w", id, err)
	}
	return nil
}

// FetchDataset returns the raw sheet rows selected by the configured rows expression.
func (c *Client) FetchDataset(ctx context.Context, token string) ([][]any, error) {
	_, body, err := c.do(ctx, call{op: "fetch_dataset", method: http.MethodGet, path: c.datasetPath, token: token})
	if err != nil {
		return nil, fmt.Errorf("fetch dataset: %w", err)
	}

	dec := json.NewDecoder(bytes.NewReader(body))
	// Numbers stay textual so large values render without exponents.
	dec.UseNumber()
	var payload any
	if err := dec.Decode(&payload); err != nil {
		return nil, apperrors.Wrap(err, apperrors.ErrCodeInternal, "decode dataset")
	}

	selected, err := jmespath.Search(c.rowsExpr, payload)
	if err != nil {
		return nil, apperrors.Wrapf(err, apperrors.ErrCodeInternal, "evaluate rows expression %q", c.rowsExpr)
	}
	return toRows(selected)
}

func toRows(v any) ([][]any, error) {
	if v == nil {
		return [][]any{}, nil
	}
	list, ok := v.([]any)
	if !ok {
		return nil, apperrors.Internalf("dataset rows: expected array, got %T", v)
	}
	rows := make([][]any, 0, len(list))
	for _, item := range list {
		switch row := item.(type) {
		case []any:
			rows = append(rows, row)
		case nil:
			rows = append(rows, []any{})
		default:
			return nil, apperrors.Internalf("dataset rows: expected array row, got %T", item)
		}
	}
	return rows, nil
}

// ListOrders returns every equipment order, newest first as the backend sorts them.
func (c *Client) ListOrders(ctx context.Context, token string) ([]orders.Order, error) {
	var out []orders.Order
	if err := c.send(ctx, call{op: "list_orders", method: http.MethodGet, path: "/api/pedidos-maquinarios", token: token, out: &out}); err != nil {
		return nil, fmt.Errorf("list orders: %w", err)
	}
	return out, nil
}

// GetOrder returns order id.
func (c *Client) GetOrder(ctx context.Context, token, id string) (orders.Order, error) {
	var out orders.Order
	err := c.send(ctx, call{op: "get_order", method: http.MethodGet, path: "/api/pedidos-maquinarios/" + url.PathEscape(id), token: token, out: &out})
	if err != nil {
		return orders.Order{}, fmt.Errorf("get order %s: %w", id, err)
	}
	return out, nil
}

// orderPayload is the create/update body; server-owned fields are omitted.
type orderPayload struct {
	Municipio    string        `json:"municipio"`
	Lideranca    string        `json:"lideranca"`
	Equipamentos []orders.Item `json:"equipamentos"`
	ValorTotal   float64       `json:"valor_total"`
	Observacoes  string        `json:"observacoes,omitempty"`
}

func newOrderPayload(o orders.Order) orderPayload {
	return orderPayload{
		Municipio:    o.Municipio,
		Lideranca:    o.Lideranca,
		Equipamentos: o.Equipamentos,
		ValorTotal:   o.ValorTotal,
		Observacoes:  o.Observacoes,
	}
}

// CreateOrder stores a new order.
func (c *Client) CreateOrder(ctx context.Context, token string, o orders.Order) (orders.Order, error) {
	var out orders.Order
	err := c.send(ctx, call{
		op:     "create_order",
		method: http.MethodPost,
		path:   "/api/pedidos-maquinarios",
		token:  token,
		body:   newOrderPayload(o),
		out:    &out,
	})
	if err != nil {
		return orders.Order{}, fmt.Errorf("create order: %w", err)
	}
	return out, nil
}

// UpdateOrder replaces the editable fields of order id.
func (c *Client) UpdateOrder(ctx context.Context, token, id string, o orders.Order) (orders.Order, error) {
	var out orders.Order
	err := c.send(ctx, call{
		op:     "update_order",
		method: http.MethodPut,
		path:   "/api/pedidos-maquinarios/" + url.PathEscape(id),
		token:  token,
		body:   newOrderPayload(o),
		out:    &out,
	})
	if err != nil {
		return orders.Order{}, fmt.Errorf("update order %s: %w", id, err)
	}
	return out, nil
}

// DeleteOrder removes order id.
func (c *Client) DeleteOrder(ctx context.Context, token, id string) error {
	err := c.send(ctx, call{op: "delete_order", method: http.MethodDelete, path: "/api/pedidos-maquinarios/" + url.PathEscape(id), token: token})
	if err != nil {
		return fmt.Errorf("delete order %s: %w", id, err)
	}
	return nil
}

// municipalityWire tolerates numeric ids.
type municipalityWire struct {
	ID              json.RawMessage `json:"id"`
	Nome            string          `json:"nome"`
	NumeroLideranca string          `json:"numero_lideranca"`
}

// ListMunicipalities lists municipalities, optionally filtered by search on the backend.
func (c *Client) ListMunicipalities(ctx context.Context, token, search string) ([]orders.Municipality, error) {
	var query url.Values
	if s := strings.TrimSpace(search); s != "" {
		query = url.Values{"search": {s}}
	}
	var wire []municipalityWire
	err := c.send(ctx, call{op: "list_municipalities", method: http.MethodGet, path: "/api/municipios", query: query, token: token, out: &wire})
	if err != nil {
		return nil, fmt.Errorf("list municipalities: %w", err)
	}
	out := make([]orders.Municipality, 0, len(wire))
	for _, m := range wire {
		out = append(out, orders.Municipality{
			ID:              strings.Trim(string(m.ID), `"`),
			Nome:            m.Nome,
			NumeroLideranca: m.NumeroLideranca,
		})
	}
	return out, nil
}

// ListRequests returns every leadership request.
func (c *Client) ListRequests(ctx context.Context, token string) ([]leadership.Request, error) {
	var out []leadership.Request
	if err := c.send(ctx, call{op: "list_leadership", method: http.MethodGet, path: "/api/liderancas", token: token, out: &out}); err != nil {
		return nil, fmt.Errorf("list leadership requests: %w", err)
	}
	return out, nil
}

type requestPayload struct {
	Pedido    string `json:"pedido"`
	Protocolo string `json:"protocolo"`
	Lideranca string `json:"lideranca"`
	Descricao string `json:"descricao,omitempty"`
}

// CreateRequest stores a new leadership request.
func (c *Client) CreateRequest(ctx context.Context, token string, r leadership.Request) (leadership.Request, error) {
	var out leadership.Request
	err := c.send(ctx, call{
		op:     "create_leadership",
		method: http.MethodPost,
		path:   "/api/liderancas",
		token:  token,
		body:   requestPayload{Pedido: r.Pedido, Protocolo: r.Protocolo, Lideranca: r.Lideranca, Descricao: r.Descricao},
		out:    &out,
	})
	if err != nil {
		return leadership.Request{}, fmt.Errorf("create leadership request: %w", err)
	}
	return out, nil
}

// DeleteRequest removes leadership request id.
func (c *Client) DeleteRequest(ctx context.Context, token, id string) error {
	err := c.send(ctx, call{op: "delete_leadership", method: http.MethodDelete, path: "/api/liderancas/" + url.PathEscape(id), token: token})
	if err != nil {
		return fmt.Errorf("delete leadership request %s: %w", id, err)
	}
	return nil
}
