package services

import (
	"context"
	"fmt"
	"html"
	"os"
	"strings"
	"time"

	"github.com/ExQueueSee/task-manager-web-app-sub000/logging"
	"github.com/ExQueueSee/task-manager-web-app-sub000/models"
	"github.com/ExQueueSee/task-manager-web-app-sub000/utils"

	"github.com/sony/gobreaker"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"golang.org/x/crypto/bcrypt"
	"golang.org/x/exp/rand"
)

// UserService struktura
type UserService struct {
	UserCollection *mongo.Collection
	JWTService     *JWTService
	BlackList      map[string]bool
	EmailBreaker   *gobreaker.CircuitBreaker
}

func NewUserService(
	userCollection *mongo.Collection,
	jwtService *JWTService,
	blackList map[string]bool,
	emailBreaker *gobreaker.CircuitBreaker,
) *UserService {
	return &UserService{
		UserCollection: userCollection,
		JWTService:     jwtService,
		BlackList:      blackList,
		EmailBreaker:   emailBreaker,
	}
}

// allowedEmailDomain vraća organizacioni domen na koji je registracija ograničena.
func allowedEmailDomain() string {
	return strings.ToLower(os.Getenv("ALLOWED_EMAIL_DOMAIN"))
}

// normalizeEmail - email je jedinstven i poredi se bez obzira na velika slova.
func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// sendEmailThroughBreaker šalje mejl kroz circuit breaker; pad slanja se
// loguje i guta, nikad ne obara već upisanu izmenu stanja.
func (s *UserService) sendEmailThroughBreaker(send func() error) {
	_, err := s.EmailBreaker.Execute(func() (interface{}, error) {
		return nil, send()
	})
	if err != nil {
		logging.Logger.Warnf("Event ID: EMAIL_SEND_FAILED, Description: Email delivery failed (best-effort, not retried): %v", err)
	}
}

// RegisterUser upisuje korisnika sa statusom pending i šalje verifikacioni kod.
func (s *UserService) RegisterUser(ctx context.Context, user models.User) error {
	user.Email = normalizeEmail(user.Email)

	domain := allowedEmailDomain()
	if domain != "" && !strings.HasSuffix(user.Email, "@"+domain) {
		return NewValidationError("registration is restricted to @%s email addresses", domain)
	}

	// Provera da li korisnik već postoji
	var existingUser models.User
	if err := s.UserCollection.FindOne(ctx, bson.M{"email": user.Email}).Decode(&existingUser); err == nil {
		return NewValidationError("user with this email already exists")
	}

	// Sanitizacija unosa
	user.Name = html.EscapeString(user.Name)
	user.LastName = html.EscapeString(user.LastName)

	if user.Name == "" {
		return NewValidationError("name is required")
	}

	if err := s.ValidatePassword(user.Password); err != nil {
		return err
	}

	// Hashiranje lozinke pre nego što se sačuva
	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(user.Password), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("failed to hash password: %v", err)
	}
	user.Password = string(hashedPassword)

	// Generisanje verifikacionog koda i podešavanje vremena isteka
	verificationCode := fmt.Sprintf("%06d", rand.Intn(1000000))
	now := time.Now()

	user.Role = models.RoleUser
	user.ApprovalStatus = models.ApprovalPending
	user.IsEmailVerified = false
	user.Credits = 0
	user.ActiveTokens = nil
	user.VerificationCode = verificationCode
	user.VerificationExpiry = now.Add(24 * time.Hour)
	user.CreatedAt = now
	user.UpdatedAt = now

	if _, err := s.UserCollection.InsertOne(ctx, user); err != nil {
		return fmt.Errorf("failed to save user: %v", err)
	}

	s.sendEmailThroughBreaker(func() error {
		return utils.SendVerificationEmail(user.Email, verificationCode)
	})

	logging.Logger.Infof("Event ID: USER_REGISTERED, Description: Verification code sent to: %s", user.Email)
	return nil
}

// ValidatePassword proverava dužinu, veliko slovo, broj, specijalni karakter i black listu.
func (s *UserService) ValidatePassword(password string) error {
	if len(password) < 8 {
		return NewValidationError("password must be at least 8 characters long")
	}

	hasUppercase := false
	for _, char := range password {
		if char >= 'A' && char <= 'Z' {
			hasUppercase = true
			break
		}
	}
	if !hasUppercase {
		return NewValidationError("password must contain at least one uppercase letter")
	}

	hasDigit := false
	for _, char := range password {
		if char >= '0' && char <= '9' {
			hasDigit = true
			break
		}
	}
	if !hasDigit {
		return NewValidationError("password must contain at least one number")
	}

	specialChars := "!@#$%^&*.,"
	hasSpecial := false
	for _, char := range password {
		if strings.ContainsRune(specialChars, char) {
			hasSpecial = true
			break
		}
	}
	if !hasSpecial {
		return NewValidationError("password must contain at least one special character")
	}

	if s.BlackList[password] {
		return NewValidationError("password is too common. Please choose a stronger one")
	}

	return nil
}

// VerifyEmail proverava kod i označava email kao verifikovan. Kod se može
// iskoristiti samo jednom, dok ne istekne.
func (s *UserService) VerifyEmail(ctx context.Context, email, code string) error {
	email = normalizeEmail(email)

	var user models.User
	if err := s.UserCollection.FindOne(ctx, bson.M{"email": email}).Decode(&user); err != nil {
		return NewNotFoundError("user not found")
	}

	if user.IsEmailVerified {
		return NewStateConflictError("email is already verified")
	}
	if user.VerificationCode == "" || user.VerificationCode != code {
		return NewValidationError("invalid verification code")
	}
	if time.Now().After(user.VerificationExpiry) {
		return NewValidationError("verification code has expired")
	}

	update := bson.M{
		"$set": bson.M{
			"isEmailVerified":  true,
			"verificationCode": "",
			"updatedAt":        time.Now(),
		},
	}
	if _, err := s.UserCollection.UpdateOne(ctx, bson.M{"_id": user.ID}, update); err != nil {
		return fmt.Errorf("failed to verify email: %v", err)
	}

	logging.Logger.Infof("Event ID: EMAIL_VERIFIED, Description: Email verified for user: %s", email)
	return nil
}

// LoginUser proverava kredencijale i kapije (verifikovan email, odobren nalog),
// pa izdaje bearer token i upisuje ga u listu aktivnih tokena.
func (s *UserService) LoginUser(ctx context.Context, email, password string) (models.User, string, error) {
	email = normalizeEmail(email)

	var user models.User
	if err := s.UserCollection.FindOne(ctx, bson.M{"email": email}).Decode(&user); err != nil {
		return models.User{}, "", NewUnauthorizedError("invalid email or password")
	}

	// Provera hashirane lozinke
	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(password)); err != nil {
		return models.User{}, "", NewUnauthorizedError("invalid email or password")
	}

	if !user.IsEmailVerified {
		return models.User{}, "", NewForbiddenError("email is not verified")
	}
	if user.ApprovalStatus != models.ApprovalApproved {
		return models.User{}, "", NewForbiddenError("account is not approved by an admin")
	}

	token, err := utils.GenerateToken(user.ID.Hex(), user.Email, string(user.Role))
	if err != nil {
		return models.User{}, "", fmt.Errorf("failed to generate token: %v", err)
	}

	update := bson.M{"$push": bson.M{"activeTokens": token}}
	if _, err := s.UserCollection.UpdateOne(ctx, bson.M{"_id": user.ID}, update); err != nil {
		return models.User{}, "", fmt.Errorf("failed to store session token: %v", err)
	}

	return user, token, nil
}

// LogoutUser uklanja jedan token iz liste aktivnih; ostale sesije ostaju.
func (s *UserService) LogoutUser(ctx context.Context, userID primitive.ObjectID, token string) error {
	update := bson.M{"$pull": bson.M{"activeTokens": token}}
	result, err := s.UserCollection.UpdateOne(ctx, bson.M{"_id": userID}, update)
	if err != nil {
		return fmt.Errorf("failed to invalidate token: %v", err)
	}
	if result.MatchedCount == 0 {
		return NewNotFoundError("user not found")
	}
	return nil
}

// GetUserByID vraća korisnika bez lozinke.
func (s *UserService) GetUserByID(ctx context.Context, id primitive.ObjectID) (models.User, error) {
	var user models.User
	if err := s.UserCollection.FindOne(ctx, bson.M{"_id": id}).Decode(&user); err != nil {
		return models.User{}, NewNotFoundError("user not found")
	}
	user.Password = ""
	return user, nil
}

// GetUserByToken pronalazi korisnika po ID-u iz claim-a i proverava da li je
// token još uvek u njegovoj listi aktivnih tokena.
func (s *UserService) GetUserByToken(ctx context.Context, userID, token string) (models.User, error) {
	id, err := primitive.ObjectIDFromHex(userID)
	if err != nil {
		return models.User{}, NewUnauthorizedError("invalid token")
	}

	var user models.User
	if err := s.UserCollection.FindOne(ctx, bson.M{"_id": id}).Decode(&user); err != nil {
		return models.User{}, NewUnauthorizedError("invalid token")
	}
	if !user.HasToken(token) {
		return models.User{}, NewUnauthorizedError("token has been invalidated")
	}
	return user, nil
}

// ChangePassword menja lozinku korisniku
func (s *UserService) ChangePassword(ctx context.Context, userID primitive.ObjectID, oldPassword, newPassword, confirmPassword string) error {
	// Proveri da li se nova lozinka poklapa sa potvrdom
	if newPassword != confirmPassword {
		return NewValidationError("new password and confirmation do not match")
	}

	var user models.User
	if err := s.UserCollection.FindOne(ctx, bson.M{"_id": userID}).Decode(&user); err != nil {
		return NewNotFoundError("user not found")
	}

	// Proveri staru lozinku
	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(oldPassword)); err != nil {
		return NewValidationError("old password is incorrect")
	}

	if err := s.ValidatePassword(newPassword); err != nil {
		return err
	}

	hashedNewPassword, err := bcrypt.GenerateFromPassword([]byte(newPassword), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("failed to hash new password: %v", err)
	}

	_, err = s.UserCollection.UpdateOne(
		ctx,
		bson.M{"_id": userID},
		bson.M{"$set": bson.M{"password": string(hashedNewPassword), "updatedAt": time.Now()}},
	)
	if err != nil {
		return fmt.Errorf("failed to update password: %v", err)
	}

	return nil
}

// SendPasswordResetLink šalje email sa reset tokenom.
func (s *UserService) SendPasswordResetLink(ctx context.Context, email string) error {
	email = normalizeEmail(email)

	var user models.User
	if err := s.UserCollection.FindOne(ctx, bson.M{"email": email}).Decode(&user); err != nil {
		return NewNotFoundError("user not found")
	}

	token, err := s.JWTService.GenerateEmailVerificationToken(email)
	if err != nil {
		return fmt.Errorf("failed to generate reset token: %v", err)
	}

	s.sendEmailThroughBreaker(func() error {
		return utils.SendPasswordResetEmail(email, token)
	})

	return nil
}

// ResetPassword postavlja novu lozinku na osnovu reset tokena iz emaila.
func (s *UserService) ResetPassword(ctx context.Context, token, newPassword string) error {
	email, err := s.JWTService.VerifyEmailVerificationToken(token)
	if err != nil {
		return NewUnauthorizedError("invalid or expired reset token")
	}

	if err := s.ValidatePassword(newPassword); err != nil {
		return err
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(newPassword), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("failed to hash password: %v", err)
	}

	// Reset lozinke obara i sve aktivne sesije.
	update := bson.M{"$set": bson.M{
		"password":     string(hashedPassword),
		"activeTokens": []string{},
		"updatedAt":    time.Now(),
	}}
	result, err := s.UserCollection.UpdateOne(ctx, bson.M{"email": email}, update)
	if err != nil {
		return fmt.Errorf("failed to reset password: %v", err)
	}
	if result.MatchedCount == 0 {
		return NewNotFoundError("user not found")
	}
	return nil
}

// GetPendingUsers vraća naloge koji čekaju odobrenje admina.
func (s *UserService) GetPendingUsers(ctx context.Context) ([]models.User, error) {
	cursor, err := s.UserCollection.Find(ctx, bson.M{"approvalStatus": models.ApprovalPending})
	if err != nil {
		return nil, fmt.Errorf("failed to fetch pending users: %v", err)
	}
	defer cursor.Close(ctx)

	var users []models.User
	if err := cursor.All(ctx, &users); err != nil {
		return nil, fmt.Errorf("failed to parse pending users: %v", err)
	}

	for i := range users {
		users[i].Password = ""
	}
	return users, nil
}

// SetApprovalStatus odobrava ili odbija nalog.
func (s *UserService) SetApprovalStatus(ctx context.Context, userID primitive.ObjectID, status models.ApprovalStatus) error {
	if !status.IsValid() {
		return NewValidationError("invalid approval status: %s", status)
	}

	update := bson.M{"$set": bson.M{"approvalStatus": status, "updatedAt": time.Now()}}
	result, err := s.UserCollection.UpdateOne(ctx, bson.M{"_id": userID}, update)
	if err != nil {
		return fmt.Errorf("failed to update approval status: %v", err)
	}
	if result.MatchedCount == 0 {
		return NewNotFoundError("user not found")
	}

	logging.Logger.Infof("Event ID: APPROVAL_STATUS_CHANGED, Description: User %s approval status set to %s", userID.Hex(), status)
	return nil
}

// ChangeRole menja ulogu korisnika (admin operacija).
func (s *UserService) ChangeRole(ctx context.Context, userID primitive.ObjectID, role models.Role) error {
	if !role.IsValid() {
		return NewValidationError("invalid role: %s", role)
	}

	update := bson.M{"$set": bson.M{"role": role, "updatedAt": time.Now()}}
	result, err := s.UserCollection.UpdateOne(ctx, bson.M{"_id": userID}, update)
	if err != nil {
		return fmt.Errorf("failed to update role: %v", err)
	}
	if result.MatchedCount == 0 {
		return NewNotFoundError("user not found")
	}
	return nil
}

// DeleteUser trajno briše nalog (admin operacija).
func (s *UserService) DeleteUser(ctx context.Context, userID primitive.ObjectID) error {
	result, err := s.UserCollection.DeleteOne(ctx, bson.M{"_id": userID})
	if err != nil {
		return fmt.Errorf("failed to delete user: %v", err)
	}
	if result.DeletedCount == 0 {
		return NewNotFoundError("user not found")
	}
	logging.Logger.Infof("Event ID: USER_DELETED, Description: User %s deleted by admin", userID.Hex())
	return nil
}

// ApplyCreditDelta dodaje deltu na kredite vlasnika. Ako nalog ne postoji,
// izmena se preskače, a status i istorija taska svejedno ostaju upisani.
func (s *UserService) ApplyCreditDelta(ctx context.Context, userID primitive.ObjectID, delta int) error {
	if delta == 0 {
		return nil
	}
	result, err := s.UserCollection.UpdateOne(ctx,
		bson.M{"_id": userID},
		bson.M{"$inc": bson.M{"credits": delta}},
	)
	if err != nil {
		return fmt.Errorf("failed to apply credit delta: %v", err)
	}
	if result.MatchedCount == 0 {
		logging.Logger.Warnf("Event ID: CREDIT_OWNER_MISSING, Description: Credit delta %d skipped, owner %s not found", delta, userID.Hex())
	}
	return nil
}

// GetLeaderboard vraća odobrene korisnike sortirane po kreditima.
func (s *UserService) GetLeaderboard(ctx context.Context, limit int64) ([]models.User, error) {
	if limit <= 0 {
		limit = 10
	}

	opts := options.Find().
		SetSort(bson.D{{Key: "credits", Value: -1}, {Key: "email", Value: 1}}).
		SetLimit(limit)
	cursor, err := s.UserCollection.Find(ctx, bson.M{"approvalStatus": models.ApprovalApproved}, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch leaderboard: %v", err)
	}
	defer cursor.Close(ctx)

	var users []models.User
	if err := cursor.All(ctx, &users); err != nil {
		return nil, fmt.Errorf("failed to parse leaderboard: %v", err)
	}

	for i := range users {
		users[i].Password = ""
	}
	return users, nil
}

// GetRank vraća poziciju korisnika na rang listi: broj korisnika sa strogo
// više kredita plus jedan.
func (s *UserService) GetRank(ctx context.Context, userID primitive.ObjectID) (int64, error) {
	user, err := s.GetUserByID(ctx, userID)
	if err != nil {
		return 0, err
	}

	ahead, err := s.UserCollection.CountDocuments(ctx, bson.M{
		"approvalStatus": models.ApprovalApproved,
		"credits":        bson.M{"$gt": user.Credits},
	})
	if err != nil {
		return 0, fmt.Errorf("failed to compute rank: %v", err)
	}
	return ahead + 1, nil
}

// DeleteExpiredUnverifiedUsers briše korisnike kojima je istekao rok za verifikaciju
func (s *UserService) DeleteExpiredUnverifiedUsers(ctx context.Context) {
	filter := bson.M{
		"isEmailVerified": false,
		"verificationExpiry": bson.M{
			"$lt": time.Now(),
		},
	}

	result, err := s.UserCollection.DeleteMany(ctx, filter)
	if err != nil {
		logging.Logger.Errorf("Event ID: EXPIRED_USERS_CLEANUP_FAILED, Description: Failed to delete expired unverified users: %v", err)
		return
	}
	if result.DeletedCount > 0 {
		logging.Logger.Infof("Event ID: EXPIRED_USERS_CLEANED, Description: Deleted %d users with expired verification codes", result.DeletedCount)
	}
}
