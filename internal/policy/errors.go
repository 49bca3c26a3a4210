package policy

import "errors"

// Taxonomia de erros compartilhada por serviços e camada HTTP.
var (
	// ErrUnauthenticated indica ausência de principal válido.
	ErrUnauthenticated = errors.New("autenticação necessária")
	// ErrForbidden indica principal autenticado sem direito à ação.
	ErrForbidden = errors.New("acesso negado")
	// ErrNotFound cobre registros inexistentes e registros de outro usuário.
	ErrNotFound = errors.New("registro não encontrado")
	// ErrInvalidArgument indica campo obrigatório ausente ou enum desconhecido.
	ErrInvalidArgument = errors.New("dados inválidos")
	// ErrStore indica falha no armazenamento; nada foi aplicado parcialmente.
	ErrStore = errors.New("falha ao acessar armazenamento")
)
