package templates

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
)

var placeholderPattern = regexp.MustCompile(`\{\{\s*[a-zA-Z0-9_]+\s*\}\}`)

// Store carrega templates de email de um diretório e faz substituição
// de variáveis nomeadas. O conjunto de variáveis é fechado: qualquer
// placeholder fora do mapa vira string vazia em vez de vazar {{typo}}
// num email enviado.
type Store struct {
	dir string
}

func NewStore(dir string) *Store {
	return &Store{dir: dir}
}

func (s *Store) Render(name string, vars map[string]string) (string, error) {
	path := filepath.Join(s.dir, name)

	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("template %s não encontrado: %w", name, err)
	}

	return Render(string(data), vars), nil
}

// Render substitui {{key}} pelos valores do mapa e apaga os
// placeholders não resolvidos.
func Render(template string, vars map[string]string) string {
	result := template
	for key, value := range vars {
		result = strings.ReplaceAll(result, "{{"+key+"}}", value)
	}
	return placeholderPattern.ReplaceAllString(result, "")
}
