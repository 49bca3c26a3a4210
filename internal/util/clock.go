package util

import "time"

// Now devolve o horário atual em UTC. Variável para permitir relógio fixo em testes.
var Now = func() time.Time {
	return time.Now().UTC()
}
