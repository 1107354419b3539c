package controllers

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"licensepro-backend/models"
	"licensepro-backend/utils"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

type CreateClientInput struct {
	Name          string `json:"name" binding:"required"`
	ContactPerson string `json:"contact_person"`
	Email         string `json:"email"`
	Phone         string `json:"phone"`
	Address       string `json:"address"`
	GSTNumber     string `json:"gst_number"`
	PANNumber     string `json:"pan_number"`
}

type UpdateClientInput struct {
	Name          *string `json:"name"`
	ContactPerson *string `json:"contact_person"`
	Email         *string `json:"email"`
	Phone         *string `json:"phone"`
	Address       *string `json:"address"`
	GSTNumber     *string `json:"gst_number"`
	PANNumber     *string `json:"pan_number"`
}

type ClientController struct {
	DB *gorm.DB
}

// parseID reads the numeric :id route parameter.
func parseID(c *gin.Context, what string) (uint, bool) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || id == 0 {
		utils.RespondWithError(c, http.StatusBadRequest, "Invalid "+what+" ID format")
		return 0, false
	}
	return uint(id), true
}

// validateContact checks the optional email and phone of a client.
func validateContact(email, phone string) string {
	if email != "" && !utils.ValidateEmail(email) {
		return "Invalid email format"
	}
	if phone != "" && !utils.ValidatePhone(phone) {
		return "Invalid phone number format"
	}
	return ""
}

// CreateClient creates a new client
func (cc *ClientController) CreateClient(c *gin.Context) {
	var input CreateClientInput
	if err := c.ShouldBindJSON(&input); err != nil {
		utils.RespondWithError(c, http.StatusBadRequest, "Invalid input: "+err.Error())
		return
	}

	input.Email = strings.TrimSpace(input.Email)
	if msg := validateContact(input.Email, input.Phone); msg != "" {
		utils.RespondWithError(c, http.StatusBadRequest, msg)
		return
	}

	client := models.Client{
		Name:          strings.TrimSpace(input.Name),
		ContactPerson: input.ContactPerson,
		Email:         input.Email,
		Phone:         utils.NormalizePhone(input.Phone),
		Address:       input.Address,
		GSTNumber:     input.GSTNumber,
		PANNumber:     input.PANNumber,
	}
	if userID := utils.CurrentUserID(c, 0); userID != 0 {
		client.UserID = &userID
	}

	if err := cc.DB.Create(&client).Error; err != nil {
		c.Error(err)
		utils.RespondWithError(c, http.StatusInternalServerError, "Failed to create client")
		return
	}

	utils.RespondWithSuccess(c, http.StatusCreated, "Client created", client)
}

// GetClients lists clients, optionally filtered by ?search=
func (cc *ClientController) GetClients(c *gin.Context) {
	q := cc.DB.Order("name")
	if search := strings.TrimSpace(c.Query("search")); search != "" {
		like := "%" + search + "%"
		q = q.Where("name LIKE ? OR contact_person LIKE ? OR email LIKE ?", like, like, like)
	}

	var clients []models.Client
	if err := q.Find(&clients).Error; err != nil {
		c.Error(err)
		utils.RespondWithError(c, http.StatusInternalServerError, "Failed to retrieve clients")
		return
	}

	utils.RespondWithSuccess(c, http.StatusOK, "", clients)
}

func (cc *ClientController) findClient(c *gin.Context) (*models.Client, bool) {
	id, ok := parseID(c, "client")
	if !ok {
		return nil, false
	}

	var client models.Client
	if err := cc.DB.First(&client, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			utils.RespondWithError(c, http.StatusNotFound, "Client not found")
		} else {
			utils.RespondWithError(c, http.StatusInternalServerError, "Database error")
		}
		return nil, false
	}
	return &client, true
}

// GetClient retrieves a specific client by ID
func (cc *ClientController) GetClient(c *gin.Context) {
	client, ok := cc.findClient(c)
	if !ok {
		return
	}

	utils.RespondWithSuccess(c, http.StatusOK, "", client)
}

// UpdateClient updates an existing client
func (cc *ClientController) UpdateClient(c *gin.Context) {
	client, ok := cc.findClient(c)
	if !ok {
		return
	}

	var input UpdateClientInput
	if err := c.ShouldBindJSON(&input); err != nil {
		utils.RespondWithError(c, http.StatusBadRequest, "Invalid input: "+err.Error())
		return
	}

	// Update fields if provided
	if input.Name != nil {
		if strings.TrimSpace(*input.Name) == "" {
			utils.RespondWithError(c, http.StatusBadRequest, "Name cannot be empty")
			return
		}
		client.Name = strings.TrimSpace(*input.Name)
	}
	if input.ContactPerson != nil {
		client.ContactPerson = *input.ContactPerson
	}
	if input.Email != nil {
		client.Email = strings.TrimSpace(*input.Email)
	}
	if input.Phone != nil {
		client.Phone = utils.NormalizePhone(*input.Phone)
	}
	if input.Address != nil {
		client.Address = *input.Address
	}
	if input.GSTNumber != nil {
		client.GSTNumber = *input.GSTNumber
	}
	if input.PANNumber != nil {
		client.PANNumber = *input.PANNumber
	}

	if msg := validateContact(client.Email, client.Phone); msg != "" {
		utils.RespondWithError(c, http.StatusBadRequest, msg)
		return
	}

	if err := cc.DB.Save(client).Error; err != nil {
		c.Error(err)
		utils.RespondWithError(c, http.StatusInternalServerError, "Failed to update client")
		return
	}

	utils.RespondWithSuccess(c, http.StatusOK, "Client updated", client)
}

// DeleteClient soft deletes a client. Its licenses are kept and from then
// on only notify the administrator.
func (cc *ClientController) DeleteClient(c *gin.Context) {
	id, ok := parseID(c, "client")
	if !ok {
		return
	}

	result := cc.DB.Delete(&models.Client{}, id)
	if result.Error != nil {
		c.Error(result.Error)
		utils.RespondWithError(c, http.StatusInternalServerError, "Failed to delete client")
		return
	}
	if result.RowsAffected == 0 {
		utils.RespondWithError(c, http.StatusNotFound, "Client not found")
		return
	}

	utils.RespondWithSuccess(c, http.StatusOK, "Client deleted successfully", nil)
}
