package policy

import (
	"fmt"
	"strings"
)

// Role é o papel do principal.
type Role string

const (
	RoleUser  Role = "USER"
	RoleAdmin Role = "ADMIN"
)

// Category é o tipo de problema relatado.
type Category string

const (
	CategoryIluminacao   Category = "ILUMINACAO"
	CategoryPavimentacao Category = "PAVIMENTACAO"
	CategoryColetaLixo   Category = "COLETA_LIXO"
	CategoryLimpeza      Category = "LIMPEZA"
	CategorySinalizacao  Category = "SINALIZACAO"
	CategoryTransporte   Category = "TRANSPORTE"
	CategoryOutros       Category = "OUTROS"
)

// Status é o estágio de atendimento de uma solicitação.
type Status string

const (
	StatusPending    Status = "PENDING"
	StatusInProgress Status = "IN_PROGRESS"
	StatusResolved   Status = "RESOLVED"
	StatusRejected   Status = "REJECTED"
)

// Priority é a prioridade definida pela administração.
type Priority string

const (
	PriorityLow    Priority = "LOW"
	PriorityMedium Priority = "MEDIUM"
	PriorityHigh   Priority = "HIGH"
	PriorityUrgent Priority = "URGENT"
)

var (
	allRoles      = []Role{RoleUser, RoleAdmin}
	allCategories = []Category{
		CategoryIluminacao,
		CategoryPavimentacao,
		CategoryColetaLixo,
		CategoryLimpeza,
		CategorySinalizacao,
		CategoryTransporte,
		CategoryOutros,
	}
	allStatuses   = []Status{StatusPending, StatusInProgress, StatusResolved, StatusRejected}
	allPriorities = []Priority{PriorityLow, PriorityMedium, PriorityHigh, PriorityUrgent}
)

// Categories devolve as categorias na ordem canônica.
func Categories() []Category { return append([]Category(nil), allCategories...) }

// Statuses devolve os status na ordem canônica.
func Statuses() []Status { return append([]Status(nil), allStatuses...) }

// Priorities devolve as prioridades na ordem canônica.
func Priorities() []Priority { return append([]Priority(nil), allPriorities...) }

// ParseRole normaliza e valida um papel.
func ParseRole(raw string) (Role, error) {
	return parseEnum(raw, allRoles, "papel")
}

// ParseCategory normaliza (maiúsculas, sem espaços nas pontas) e valida uma categoria.
func ParseCategory(raw string) (Category, error) {
	return parseEnum(raw, allCategories, "categoria")
}

// ParseStatus normaliza e valida um status.
func ParseStatus(raw string) (Status, error) {
	return parseEnum(raw, allStatuses, "status")
}

// ParsePriority normaliza e valida uma prioridade.
func ParsePriority(raw string) (Priority, error) {
	return parseEnum(raw, allPriorities, "prioridade")
}

func parseEnum[T ~string](raw string, allowed []T, field string) (T, error) {
	normalized := T(strings.ToUpper(strings.TrimSpace(raw)))
	for _, v := range allowed {
		if v == normalized {
			return v, nil
		}
	}
	var zero T
	return zero, fmt.Errorf("%w: valor inválido para %s: %q", ErrInvalidArgument, field, raw)
}
