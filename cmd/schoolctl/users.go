package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"golang.org/x/crypto/bcrypt"
	"golang.org/x/term"

	"github.com/noah-isme/school-portal-api/internal/models"
)

const minPasswordLength = 6

type passwordUsers interface {
	FindByUsername(ctx context.Context, username string) (*models.User, error)
	UpdatePassword(ctx context.Context, id, passwordHash string, updatedAt time.Time) error
	RevokeUserRefreshTokens(ctx context.Context, userID string) error
}

type departmentFinder interface {
	FindByName(ctx context.Context, name string) (*models.Department, error)
}

func resetPassword(ctx context.Context, users passwordUsers, args []string, in io.Reader, out io.Writer) error {
	fs := newFlagSet("resetpassword")
	username := fs.String("username", "", "account to reset")
	password := fs.String("password", "", "new password; prompted when empty")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *username == "" {
		return errors.New("-username is required")
	}

	user, err := users.FindByUsername(ctx, *username)
	if err != nil {
		return fmt.Errorf("find user %s: %w", *username, err)
	}
	secret, err := passwordOrPrompt(*password, in, out)
	if err != nil {
		return err
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(secret), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}
	if err := users.UpdatePassword(ctx, user.ID, string(hash), time.Now().UTC()); err != nil {
		return err
	}
	if err := users.RevokeUserRefreshTokens(ctx, user.ID); err != nil {
		return err
	}
	fmt.Fprintf(out, "password updated for %s\n", user.Username)
	return nil
}

func addUser(ctx context.Context, users seedUsers, departments departmentFinder, args []string, in io.Reader, out io.Writer) error {
	fs := newFlagSet("adduser")
	username := fs.String("username", "", "login name")
	fullName := fs.String("name", "", "full name")
	role := fs.String("role", string(models.RoleStudent), "ADMIN, LECTURER or STUDENT")
	email := fs.String("email", "", "e-mail address")
	department := fs.String("department", "", "department name")
	level := fs.String("level", "", "student level")
	password := fs.String("password", "", "initial password; prompted when empty")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *username == "" || *fullName == "" {
		return errors.New("-username and -name are required")
	}
	userRole := models.UserRole(strings.ToUpper(*role))
	if !userRole.Valid() {
		return fmt.Errorf("unknown role %q", *role)
	}

	user := &models.User{
		Username: *username,
		FullName: *fullName,
		Role:     userRole,
		Email:    *email,
		Level:    *level,
	}
	if *department != "" {
		dept, err := departments.FindByName(ctx, *department)
		if err != nil {
			return fmt.Errorf("find department %s: %w", *department, err)
		}
		user.DepartmentID = &dept.ID
	}

	secret, err := passwordOrPrompt(*password, in, out)
	if err != nil {
		return err
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(secret), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}
	user.PasswordHash = string(hash)
	if err := users.Create(ctx, user); err != nil {
		return err
	}
	fmt.Fprintf(out, "created %s %s (%s)\n", user.Role, user.Username, user.ID)
	return nil
}

func passwordOrPrompt(given string, in io.Reader, out io.Writer) (string, error) {
	secret := given
	if secret == "" {
		var err error
		if secret, err = promptSecret(in, out, "New password: "); err != nil {
			return "", err
		}
	}
	if len(secret) < minPasswordLength {
		return "", fmt.Errorf("password must be at least %d characters", minPasswordLength)
	}
	return secret, nil
}

// promptSecret reads a line without echo when in is a terminal, and a plain line otherwise.
func promptSecret(in io.Reader, out io.Writer, prompt string) (string, error) {
	fmt.Fprint(out, prompt)
	if file, ok := in.(*os.File); ok && term.IsTerminal(int(file.Fd())) {
		raw, err := term.ReadPassword(int(file.Fd()))
		fmt.Fprintln(out)
		if err != nil {
			return "", fmt.Errorf("read password: %w", err)
		}
		return string(raw), nil
	}
	line, err := bufio.NewReader(in).ReadString('\n')
	if err != nil && !(errors.Is(err, io.EOF) && line != "") {
		return "", fmt.Errorf("read password: %w", err)
	}
	return strings.TrimRight(line, "\r\n"), nil
}
