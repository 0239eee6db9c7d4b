// Package leadership models requests filed by municipal leaders, identified by
// a state protocol number.
package leadership

import (
	"regexp"
	"strings"
	"time"
	"unicode/utf8"

	apperrors "github.com/target/municipal-portal/internal/errors"
)

var protocoloPattern = regexp.MustCompile(`^\d{2}\.\d{3}\.\d{3}-\d$`)

// Request is a leadership request as stored by the backend.
type Request struct {
	ID        string    `json:"id,omitempty"`
	UserID    string    `json:"user_id,omitempty"`
	Pedido    string    `json:"pedido"`
	Protocolo string    `json:"protocolo"`
	Lideranca string    `json:"lideranca"`
	Descricao string    `json:"descricao,omitempty"`
	CreatedAt time.Time `json:"created_at,omitzero"`
	UpdatedAt time.Time `json:"updated_at,omitzero"`
}

// ValidProtocolo reports whether p has the form 00.000.000-0.
func ValidProtocolo(p string) bool {
	return protocoloPattern.MatchString(strings.TrimSpace(p))
}

// Normalize trims every field in place.
func (r *Request) Normalize() {
	r.Pedido = strings.TrimSpace(r.Pedido)
	r.Protocolo = strings.TrimSpace(r.Protocolo)
	r.Lideranca = strings.TrimSpace(r.Lideranca)
	r.Descricao = strings.TrimSpace(r.Descricao)
}

// Validate checks field presence and limits. Call Normalize first.
func (r Request) Validate() error {
	if n := utf8.RuneCountInString(r.Pedido); n == 0 || n > 200 {
		return apperrors.ValidationField("pedido", "Pedido deve ter entre 1 e 200 caracteres")
	}
	if !ValidProtocolo(r.Protocolo) {
		return apperrors.ValidationField("protocolo",
			"Protocolo deve estar no formato 00.000.000-0 (exemplo: 24.298.238-6)")
	}
	if n := utf8.RuneCountInString(r.Lideranca); n == 0 || n > 200 {
		return apperrors.ValidationField("lideranca", "Liderança deve ter entre 1 e 200 caracteres")
	}
	if utf8.RuneCountInString(r.Descricao) > 2000 {
		return apperrors.ValidationField("descricao", "Descrição excede 2000 caracteres")
	}
	return nil
}
