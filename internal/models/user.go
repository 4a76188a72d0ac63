package models

import "golang.org/x/crypto/bcrypt"

// User represents an account that owns places and writes reviews.
type User struct {
	Base
	Email     string
	Password  string // bcrypt hash
	FirstName string
	LastName  string
}

func (u *User) Kind() Kind { return KindUser }

// CheckPassword reports whether plain matches the stored hash.
func (u *User) CheckPassword(plain string) bool {
	return bcrypt.CompareHashAndPassword([]byte(u.Password), []byte(plain)) == nil
}

func hashPassword(plain string) (string, error) {
	hashed, err := bcrypt.GenerateFromPassword([]byte(plain), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hashed), nil
}

func (u *User) get(name string) any {
	switch name {
	case "email":
		return u.Email
	case "password":
		return u.Password
	case "first_name":
		return u.FirstName
	case "last_name":
		return u.LastName
	}
	return nil
}

func (u *User) set(name string, v any) {
	switch name {
	case "email":
		u.Email = v.(string)
	case "password":
		u.Password = v.(string)
	case "first_name":
		u.FirstName = v.(string)
	case "last_name":
		u.LastName = v.(string)
	}
}
