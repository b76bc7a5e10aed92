package utils

import (
	"fmt"
	"os"
	"strings"
)

// SecretsDir - каталог Docker Secrets. Переопределяется переменной SECRETS_DIR (локальный запуск, тесты).
func SecretsDir() string {
	if dir := os.Getenv("SECRETS_DIR"); dir != "" {
		return dir
	}
	return "/run/secrets"
}

// ReadSecret читает секрет из файла Docker Secrets.
// Если файла нет, используется переменная окружения с тем же именем в верхнем регистре.
func ReadSecret(secretName string) (string, error) {
	filePath := fmt.Sprintf("%s/%s", SecretsDir(), secretName)
	secretBytes, err := os.ReadFile(filePath)
	if err == nil {
		secret := strings.TrimSpace(string(secretBytes))
		if secret == "" {
			return "", fmt.Errorf("secret file %s is empty", filePath)
		}
		return secret, nil
	}

	envName := strings.ToUpper(secretName)
	if value := strings.TrimSpace(os.Getenv(envName)); value != "" {
		return value, nil
	}
	return "", fmt.Errorf("failed to read secret file %s and env %s is not set: %w", filePath, envName, err)
}
