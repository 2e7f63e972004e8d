package services

import "gorm.io/gorm"

// Process-wide collaborators, set once at startup (or per test).
var (
	fileServiceInstance FileService
	dispatcherInstance  *Dispatcher
	changeFeedInstance  ChangeFeed
	provisionerInstance AccountProvisioner
)

// InitFileService initializes the order file service with an S3 backend.
// A nil backend disables file storage.
func InitFileService(s3 S3Interface) FileService {
	if s3 == nil {
		fileServiceInstance = nil
		return nil
	}
	fileServiceInstance = NewS3FileService(s3)
	return fileServiceInstance
}

// GetFileService returns the initialized file service instance
func GetFileService() FileService {
	return fileServiceInstance
}

// InitDispatcher installs the email dispatcher used for status notifications
func InitDispatcher(d *Dispatcher) {
	dispatcherInstance = d
}

// InitChangeFeed installs the feed that mutations are published to
func InitChangeFeed(f ChangeFeed) {
	changeFeedInstance = f
}

func GetChangeFeed() ChangeFeed {
	return changeFeedInstance
}

// InitProvisioner installs the Auth0 account provisioner for team members
func InitProvisioner(p AccountProvisioner) {
	provisionerInstance = p
}

// Orders builds an OrderService over db with the registered collaborators
func Orders(db *gorm.DB) *OrderService {
	return NewOrderService(db, dispatcherInstance, changeFeedInstance, fileServiceInstance)
}

// Team builds a TeamService over db with the registered collaborators
func Team(db *gorm.DB) *TeamService {
	return NewTeamService(db, provisionerInstance, changeFeedInstance)
}
