// Command createadmin registers an administrator account.
package main

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
	"golang.org/x/term"

	"humanityclub/site/internal/config"
	"humanityclub/site/internal/database"
	"humanityclub/site/internal/log"
	"humanityclub/site/internal/models"
	"humanityclub/site/internal/repository"
	"humanityclub/site/internal/security"
	"humanityclub/site/internal/service"
)

func main() {
	email := flag.String("email", "", "admin email address")
	role := flag.String("role", string(models.UserRoleAdmin), "account role (admin or user)")
	flag.Parse()

	if err := run(*email, models.UserRole(*role)); err != nil {
		fmt.Fprintln(os.Stderr, "createadmin:", err)
		os.Exit(1)
	}
}

func run(email string, role models.UserRole) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	logger := log.NewCLI(false)

	in := bufio.NewReader(os.Stdin)
	if strings.TrimSpace(email) == "" {
		fmt.Print("Email: ")
		line, err := in.ReadString('\n')
		if err != nil {
			return fmt.Errorf("read email: %w", err)
		}
		email = strings.TrimSpace(line)
	}

	password, err := readPassword(in, "Password: ")
	if err != nil {
		return err
	}
	confirm, err := readPassword(in, "Confirm password: ")
	if err != nil {
		return err
	}
	if password != confirm {
		return errors.New("passwords do not match")
	}
	acct := account{Email: email, Password: password, Role: string(role)}
	if err := acct.validate(); err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	pool, err := database.NewPostgresPool(ctx, cfg.Postgres)
	if err != nil {
		return err
	}
	defer pool.Close()
	if err := database.Migrate(ctx, pool, logger); err != nil {
		return err
	}

	tokens, err := security.NewTokenIssuer(cfg.Security)
	if err != nil {
		return err
	}
	auth := service.NewAuthService(repository.NewUserRepository(pool), tokens, logger)

	user, err := auth.CreateUser(ctx, email, password, role)
	if err != nil {
		return err
	}
	fmt.Printf("created %s %s (%s)\n", user.Role, user.Email, user.ID)
	return nil
}

type account struct {
	Email    string `binding:"required,email"`
	Password string `binding:"required,min=8"`
	Role     string `binding:"required,oneof=admin user"`
}

func (a account) validate() error {
	err := binding.Validator.ValidateStruct(&a)
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err
	}
	switch fe := verrs[0]; {
	case fe.Tag() == "required":
		return fmt.Errorf("%s is required", strings.ToLower(fe.Field()))
	case fe.Field() == "Email":
		return fmt.Errorf("invalid email %q", a.Email)
	case fe.Field() == "Password":
		return fmt.Errorf("password must be at least %s characters", fe.Param())
	default:
		return fmt.Errorf("unknown role %q", a.Role)
	}
}

// readPassword hides input on a terminal and falls back to line reads when
// stdin is piped.
func readPassword(in *bufio.Reader, prompt string) (string, error) {
	fmt.Print(prompt)
	defer fmt.Println()

	fd := int(os.Stdin.Fd())
	if !term.IsTerminal(fd) {
		line, err := in.ReadString('\n')
		if err != nil && line == "" {
			return "", fmt.Errorf("read password: %w", err)
		}
		return strings.TrimRight(line, "\r\n"), nil
	}

	b, err := term.ReadPassword(fd)
	if err != nil {
		return "", fmt.Errorf("read password: %w", err)
	}
	return string(b), nil
}
