package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/noah-isme/school-portal-api/internal/models"
)

const defaultSeedPassword = "password"

type seedUsers interface {
	FindByUsername(ctx context.Context, username string) (*models.User, error)
	Create(ctx context.Context, user *models.User) error
}

type seedDepartments interface {
	FindByName(ctx context.Context, name string) (*models.Department, error)
	Create(ctx context.Context, department *models.Department) error
}

type seedCourses interface {
	List(ctx context.Context, filter models.CourseFilter) ([]models.Course, int, error)
	Create(ctx context.Context, course *models.Course) error
}

type seedAssignments interface {
	List(ctx context.Context, filter models.AssignmentFilter) ([]models.Assignment, error)
	Create(ctx context.Context, assignment *models.Assignment) error
}

// Seeder writes the bootstrap data set. Every step looks up its record first so repeated runs
// leave existing data untouched.
type Seeder struct {
	Users         seedUsers
	Departments   seedDepartments
	Courses       seedCourses
	Assignments   seedAssignments
	AdminPassword string
	AdminEmail    string
	Logger        *zap.Logger

	now func() time.Time
}

// Run ensures the admin, a department, one student, one lecturer, a course and an assignment exist.
func (s *Seeder) Run(ctx context.Context) error {
	if s.Logger == nil {
		s.Logger = zap.NewNop()
	}
	if s.now == nil {
		s.now = time.Now
	}

	if _, err := s.ensureUser(ctx, &models.User{
		Username: "admin",
		FullName: "Administrator",
		Role:     models.RoleAdmin,
		Email:    s.AdminEmail,
	}, s.AdminPassword); err != nil {
		return err
	}

	department, err := s.ensureDepartment(ctx, "Computer Science")
	if err != nil {
		return err
	}

	if _, err := s.ensureUser(ctx, &models.User{
		Username:     "student",
		FullName:     "Sample Student",
		Role:         models.RoleStudent,
		DepartmentID: &department.ID,
		Level:        "100",
		Email:        "student@school.com",
	}, defaultSeedPassword); err != nil {
		return err
	}

	lecturer, err := s.ensureUser(ctx, &models.User{
		Username:     "lecturer",
		FullName:     "Sample Lecturer",
		Role:         models.RoleLecturer,
		DepartmentID: &department.ID,
		Email:        "lecturer@school.com",
	}, defaultSeedPassword)
	if err != nil {
		return err
	}

	course, err := s.ensureCourse(ctx, &models.Course{
		Name:         "Intro to Java",
		CourseCode:   "CSC101",
		CreditUnits:  3,
		DepartmentID: department.ID,
		LecturerID:   &lecturer.ID,
	})
	if err != nil {
		return err
	}

	return s.ensureAssignment(ctx, &models.Assignment{
		Title:        "Java Basics",
		Description:  "Write a program that prints the first ten Fibonacci numbers.",
		DueDate:      s.now().UTC().AddDate(0, 0, 7),
		Level:        "100",
		Status:       models.AssignmentStatusPublished,
		CreatedBy:    lecturer.ID,
		DepartmentID: department.ID,
		CourseID:     course.ID,
	})
}

func (s *Seeder) ensureUser(ctx context.Context, user *models.User, password string) (*models.User, error) {
	existing, err := s.Users.FindByUsername(ctx, user.Username)
	if err == nil {
		s.Logger.Info("user already present", zap.String("username", user.Username))
		return existing, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("find user %s: %w", user.Username, err)
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}
	user.PasswordHash = string(hash)
	if err := s.Users.Create(ctx, user); err != nil {
		return nil, err
	}
	s.Logger.Info("user created", zap.String("username", user.Username), zap.String("role", string(user.Role)))
	return user, nil
}

func (s *Seeder) ensureDepartment(ctx context.Context, name string) (*models.Department, error) {
	existing, err := s.Departments.FindByName(ctx, name)
	if err == nil {
		return existing, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("find department %s: %w", name, err)
	}
	department := &models.Department{Name: name}
	if err := s.Departments.Create(ctx, department); err != nil {
		return nil, err
	}
	s.Logger.Info("department created", zap.String("name", name))
	return department, nil
}

func (s *Seeder) ensureCourse(ctx context.Context, course *models.Course) (*models.Course, error) {
	existing, _, err := s.Courses.List(ctx, models.CourseFilter{Search: course.CourseCode, PageSize: 100})
	if err != nil {
		return nil, err
	}
	for i := range existing {
		if existing[i].CourseCode == course.CourseCode {
			return &existing[i], nil
		}
	}
	if err := s.Courses.Create(ctx, course); err != nil {
		return nil, err
	}
	s.Logger.Info("course created", zap.String("code", course.CourseCode))
	return course, nil
}

func (s *Seeder) ensureAssignment(ctx context.Context, assignment *models.Assignment) error {
	existing, err := s.Assignments.List(ctx, models.AssignmentFilter{CourseID: assignment.CourseID})
	if err != nil {
		return err
	}
	for _, item := range existing {
		if item.Title == assignment.Title {
			return nil
		}
	}
	if err := s.Assignments.Create(ctx, assignment); err != nil {
		return err
	}
	s.Logger.Info("assignment created", zap.String("title", assignment.Title))
	return nil
}
