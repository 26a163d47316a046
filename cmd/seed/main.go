package main

import (
	"log"
	"time"

	"golang.org/x/crypto/bcrypt"

	"sitecost/internal/database"
	"sitecost/internal/domain"
)

// Seeds a local sqlite database with a demo company, users, jobs and a few
// manually entered receipts.
func main() {
	db, err := database.Connect("sitecost.db")
	if err != nil {
		log.Fatal("DB connection failed:", err)
	}

	log.Println("Running AutoMigrate...")
	if err := database.Migrate(db); err != nil {
		log.Fatal("AutoMigrate failed:", err)
	}

	log.Println("Cleaning old data...")
	db.Exec("DELETE FROM receipts")
	db.Exec("DELETE FROM jobs")
	db.Exec("DELETE FROM users")
	db.Exec("DELETE FROM companies")

	company := &domain.Company{Name: "Hartmann Construction", TaxNumber: "991234567890"}
	if err := db.Create(company).Error; err != nil {
		log.Fatal(err)
	}

	hash, _ := bcrypt.GenerateFromPassword([]byte("password123"), bcrypt.DefaultCost)
	users := []*domain.User{
		{CompanyID: company.ID, Email: "admin@hartmann.test", PasswordHash: string(hash), Name: "Ada Hartmann", Role: domain.RoleAdmin},
		{CompanyID: company.ID, Email: "foreman@hartmann.test", PasswordHash: string(hash), Name: "Felix Berg", Role: domain.RoleMember},
	}
	for _, u := range users {
		if err := db.Create(u).Error; err != nil {
			log.Fatal(err)
		}
	}

	jobs := []*domain.Job{
		{CompanyID: company.ID, Code: "JOB-001", Name: "Riverside Apartments", Address: "12 River Rd", Status: domain.JobStatusActive},
		{CompanyID: company.ID, Code: "JOB-002", Name: "Depot Renovation", Address: "4 Yard Ln", Status: domain.JobStatusActive},
	}
	for _, j := range jobs {
		if err := db.Create(j).Error; err != nil {
			log.Fatal(err)
		}
	}

	tax := 9.50
	receipts := []*domain.Receipt{
		{CompanyID: company.ID, JobID: &jobs[0].ID, UserID: users[1].ID, Vendor: "BuildMart", Amount: 118.40, Tax: &tax, ReceiptDate: time.Now().AddDate(0, 0, -3), Status: domain.ReceiptStatusProcessed, MetaSchemaVersion: domain.ReceiptMetaSchemaVersion},
		{CompanyID: company.ID, JobID: &jobs[1].ID, UserID: users[1].ID, Vendor: "ToolHire Co", Amount: 75.00, ReceiptDate: time.Now().AddDate(0, 0, -1), Status: domain.ReceiptStatusProcessed, MetaSchemaVersion: domain.ReceiptMetaSchemaVersion},
	}
	for _, r := range receipts {
		r.RecomputeTotal()
		if err := db.Create(r).Error; err != nil {
			log.Fatal(err)
		}
	}

	log.Printf("Seeded company=%d users=%d jobs=%d receipts=%d", company.ID, len(users), len(jobs), len(receipts))
}
