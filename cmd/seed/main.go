package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/ikkim/udonggeum-storefront/config"
	"github.com/ikkim/udonggeum-storefront/internal/api"
	"github.com/ikkim/udonggeum-storefront/internal/app/service"
	"github.com/ikkim/udonggeum-storefront/pkg/logger"
)

// Imports catalog products from an XLSX sheet through the storefront API.
// Columns: name, description, category, price, images, sizes ("S:3,M:5"), featured.
func main() {
	// 명령줄 인자 확인
	if len(os.Args) < 2 {
		log.Fatal("Usage: go run cmd/seed/main.go <xlsx_file_path>")
	}
	filePath := os.Args[1]

	// 관리자 토큰은 환경 변수로 전달
	token := os.Getenv("STOREFRONT_ADMIN_TOKEN")
	if token == "" {
		log.Fatal("STOREFRONT_ADMIN_TOKEN is required")
	}

	// 설정 로드
	cfg, err := config.Load()
	if err != nil {
		log.Fatal("Failed to load config:", err)
	}
	logger.Initialize(logger.Config{Level: "info", Format: "console", EnableColor: true})

	apiClient := api.NewClient(api.Config{
		BaseURL:    cfg.API.BaseURL,
		ServiceKey: cfg.API.ServiceKey,
		Timeout:    cfg.API.Timeout,
	})
	adminService := service.NewAdminService(apiClient, nil)

	ctx, cancel := context.WithTimeout(api.WithAuthToken(context.Background(), token), 10*time.Minute)
	defer cancel()

	// 관리자 권한 확인
	session, err := apiClient.CurrentSession(ctx)
	if err != nil {
		log.Fatal("Failed to check session:", err)
	}
	if !session.IsAdmin() {
		log.Fatal("STOREFRONT_ADMIN_TOKEN does not belong to an admin")
	}

	// 사용자 확인
	fmt.Printf("Importing products from %s into %s\n", filePath, cfg.API.BaseURL)
	fmt.Print("Do you want to proceed with the import? (yes/no): ")
	var confirm string
	fmt.Scanln(&confirm)
	if confirm != "yes" && confirm != "y" {
		fmt.Println("Import cancelled.")
		return
	}

	f, err := os.Open(filePath)
	if err != nil {
		log.Fatal("Failed to open XLSX:", err)
	}
	defer f.Close()

	result, err := adminService.ImportProducts(ctx, f)
	if err != nil {
		log.Fatal("Failed to import products:", err)
	}

	fmt.Println("Import completed!")
	fmt.Printf("Products created: %d\n", result.Created)
	if len(result.Failed) > 0 {
		fmt.Printf("Rows skipped: %d\n", len(result.Failed))
		for _, row := range result.Failed {
			fmt.Printf("  row %d: %s\n", row.Row, row.Message)
		}
	}
}
