package handlers

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"github.com/tmc6backup-cloud/E-Kartu-Kendali-Pusdal-LH-Sulawesi-Maluku-sub000/config"
	"github.com/tmc6backup-cloud/E-Kartu-Kendali-Pusdal-LH-Sulawesi-Maluku-sub000/internal/middleware"
	"github.com/tmc6backup-cloud/E-Kartu-Kendali-Pusdal-LH-Sulawesi-Maluku-sub000/models"
)

// UserResponse keeps password hashes out of API responses.
type UserResponse struct {
	ID          uint                  `json:"id"`
	NIP         string                `json:"nip"`
	FullName    string                `json:"fullName"`
	Role        string                `json:"role"`
	Departments models.DepartmentList `json:"departments"`
	Phone       string                `json:"phone"`
	CreatedAt   time.Time             `json:"createdAt"`
}

func toUserResponse(u *models.User) UserResponse {
	return UserResponse{
		ID:          u.ID,
		NIP:         u.NIP,
		FullName:    u.FullName,
		Role:        u.Role,
		Departments: u.Departments,
		Phone:       u.Phone,
		CreatedAt:   u.CreatedAt,
	}
}

var validRoles = map[string]bool{
	models.RoleAdmin:            true,
	models.RoleStaf:             true,
	models.RoleKabid:            true,
	models.RoleValidatorProgram: true,
	models.RoleValidatorTU:      true,
	models.RolePPK:              true,
	models.RolePICVerifikator:   true,
	models.RolePICTU:            true,
	models.RolePICWilayah1:      true,
	models.RolePICWilayah2:      true,
	models.RolePICWilayah3:      true,
	models.RoleBendahara:        true,
	models.RoleKPA:              true,
}

type CreateUserInput struct {
	NIP         string   `json:"nip" binding:"required"`
	FullName    string   `json:"fullName" binding:"required"`
	Role        string   `json:"role" binding:"required"`
	Departments []string `json:"departments"`
	Phone       string   `json:"phone"`
	Password    string   `json:"password" binding:"required,min=6"`
}

type UpdateUserInput struct {
	FullName    string   `json:"fullName" binding:"required"`
	Role        string   `json:"role" binding:"required"`
	Departments []string `json:"departments"`
	Phone       string   `json:"phone"`
	Password    string   `json:"password"`
}

// ListUsersHandler returns a paginated list of accounts, or the full list
// with ?all=true.
func ListUsersHandler(c *gin.Context) {
	var users []models.User
	query := config.DB.Order("id asc")

	if c.Query("all") == "true" {
		if err := query.Find(&users).Error; err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Could not fetch users"})
			return
		}
	} else {
		if err := query.Scopes(paged(c)).Find(&users).Error; err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Could not fetch users"})
			return
		}
	}

	responseData := make([]UserResponse, 0, len(users))
	for i := range users {
		responseData = append(responseData, toUserResponse(&users[i]))
	}

	if c.Query("all") == "true" {
		c.JSON(http.StatusOK, gin.H{"data": responseData})
		return
	}
	var totalRows int64
	config.DB.Model(&models.User{}).Count(&totalRows)
	c.JSON(http.StatusOK, newListPage(c, responseData, totalRows))
}

// GetUserHandler retrieves a single user by ID.
func GetUserHandler(c *gin.Context) {
	var user models.User
	if err := config.DB.First(&user, c.Param("id")).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "User not found"})
		return
	}
	c.JSON(http.StatusOK, toUserResponse(&user))
}

// CreateUserHandler creates an account from the admin panel. There is no
// self-service signup.
func CreateUserHandler(c *gin.Context) {
	var input CreateUserInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if !validRoles[input.Role] {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Unknown role: " + input.Role})
		return
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(input.Password), bcrypt.DefaultCost)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to hash password"})
		return
	}

	user := models.User{
		NIP:         input.NIP,
		FullName:    input.FullName,
		Role:        input.Role,
		Departments: models.DepartmentList(input.Departments),
		Phone:       input.Phone,
		Password:    string(hashedPassword),
	}
	if err := config.DB.Create(&user).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create user: " + err.Error()})
		return
	}
	c.JSON(http.StatusCreated, toUserResponse(&user))
}

// UpdateUserHandler edits an account and invalidates its cached auth
// snapshot.
func UpdateUserHandler(c *gin.Context) {
	var user models.User
	if err := config.DB.First(&user, c.Param("id")).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "User not found"})
		return
	}

	var input UpdateUserInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if !validRoles[input.Role] {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Unknown role: " + input.Role})
		return
	}

	user.FullName = input.FullName
	user.Role = input.Role
	user.Departments = models.DepartmentList(input.Departments)
	user.Phone = input.Phone
	if input.Password != "" {
		hashedPassword, err := bcrypt.GenerateFromPassword([]byte(input.Password), bcrypt.DefaultCost)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to hash password"})
			return
		}
		user.Password = string(hashedPassword)
	}

	if err := config.DB.Save(&user).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update user"})
		return
	}

	middleware.InvalidateUserCache(user.ID)
	c.JSON(http.StatusOK, toUserResponse(&user))
}

// DeleteUserHandler removes an account.
func DeleteUserHandler(c *gin.Context) {
	var user models.User
	if err := config.DB.First(&user, c.Param("id")).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "User not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Database error"})
		return
	}
	if err := config.DB.Delete(&user).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to delete user"})
		return
	}
	middleware.InvalidateUserCache(user.ID)
	c.JSON(http.StatusOK, gin.H{"message": "User deleted"})
}

type UpdateProfileInput struct {
	FullName    string `json:"fullName"`
	Phone       string `json:"phone"`
	OldPassword string `json:"oldPassword"`
	NewPassword string `json:"newPassword"`
}

// UpdateProfileHandler lets the acting user edit their own contact data.
// Changing the password requires the current one.
func UpdateProfileHandler(c *gin.Context) {
	userID, _ := c.Get("user_id")

	var user models.User
	if err := config.DB.First(&user, userID).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "User not found"})
		return
	}

	var input UpdateProfileInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if input.FullName != "" {
		user.FullName = input.FullName
	}
	if input.Phone != "" {
		user.Phone = input.Phone
	}
	if input.NewPassword != "" {
		if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(input.OldPassword)); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Password lama tidak cocok"})
			return
		}
		hashedPassword, err := bcrypt.GenerateFromPassword([]byte(input.NewPassword), bcrypt.DefaultCost)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to hash password"})
			return
		}
		user.Password = string(hashedPassword)
	}

	if err := config.DB.Save(&user).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update profile"})
		return
	}

	middleware.InvalidateUserCache(user.ID)
	c.JSON(http.StatusOK, toUserResponse(&user))
}
