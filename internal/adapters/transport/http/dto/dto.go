package dto

import "strings"

// RegisterDTO arrives as multipart form; the file fields are filled in by the
// handler with paths of the saved temp files.
type RegisterDTO struct {
	FullName       string `form:"fullName" json:"fullName" validate:"required"`
	Email          string `form:"email"    json:"email"    validate:"required,contains=@,min=6"`
	Username       string `form:"username" json:"username" validate:"required,min=3"`
	Password       string `form:"password" json:"password" validate:"required,min=6"`
	AvatarPath     string `form:"-"        json:"avatar"   validate:"required"`
	CoverImagePath string `form:"-"        json:"coverImage"`
}

func (d *RegisterDTO) Normalize() {
	d.FullName = strings.TrimSpace(d.FullName)
	d.Email = strings.ToLower(strings.TrimSpace(d.Email))
	d.Username = strings.ToLower(strings.TrimSpace(d.Username))
}

// LoginDTO accepts the identifier under any of the three names clients use.
type LoginDTO struct {
	Identifier string `json:"identifier" form:"identifier"`
	Username   string `json:"username"   form:"username"`
	Email      string `json:"email"      form:"email"`
	Password   string `json:"password"   form:"password" validate:"required"`
}

func (d LoginDTO) LoginIdentifier() string {
	for _, s := range []string{d.Identifier, d.Username, d.Email} {
		if s = strings.TrimSpace(s); s != "" {
			return strings.ToLower(s)
		}
	}
	return ""
}

type RefreshDTO struct {
	RefreshToken string `json:"refreshToken" form:"refreshToken"`
}

type ChangePasswordDTO struct {
	CurrentPassword string `json:"currentPassword" validate:"required"`
	NewPassword     string `json:"newPassword"     validate:"required,min=6"`
}

type UpdateAccountDTO struct {
	FullName string `json:"fullName" validate:"required"`
	Email    string `json:"email"    validate:"required,contains=@,min=6"`
}

func (d *UpdateAccountDTO) Normalize() {
	d.FullName = strings.TrimSpace(d.FullName)
	d.Email = strings.ToLower(strings.TrimSpace(d.Email))
}
