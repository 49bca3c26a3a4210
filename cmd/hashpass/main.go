package main

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/ecoa/zeladoria/internal/auth"
	"github.com/ecoa/zeladoria/internal/util"
)

// hashpass imprime o hash argon2id de uma senha. Sem argumento, lê a senha da entrada padrão.
func main() {
	var password string
	if len(os.Args) >= 2 {
		password = os.Args[1]
	} else {
		line, err := bufio.NewReader(os.Stdin).ReadString('\n')
		if err != nil && line == "" {
			fmt.Fprintln(os.Stderr, "usage: hashpass <password>  (ou echo senha | hashpass)")
			os.Exit(1)
		}
		password = strings.TrimRight(line, "\r\n")
	}

	if err := util.ValidatePassword(password); err != nil {
		fmt.Fprintf(os.Stderr, "senha inválida: %v\n", err)
		os.Exit(1)
	}

	hash, err := auth.Hash(password)
	if err != nil {
		fmt.Fprintf(os.Stderr, "hash error: %v\n", err)
		os.Exit(1)
	}

	fmt.Println(hash)
}
