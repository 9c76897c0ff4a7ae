package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/dom/stay-portal/internal/apiclient"
	"github.com/dom/stay-portal/internal/domain"
)

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	// Global flags
	apiURL := "http://localhost:8080/api"
	if envURL := os.Getenv("API_BASE_URL"); envURL != "" {
		apiURL = envURL
	}

	command := os.Args[1]
	args := os.Args[2:]

	client := apiclient.New(apiURL, 15*time.Second)
	ctx := context.Background()

	switch command {
	case "full":
		fullCmd(ctx, client, args)
	case "populate":
		populateCmd(ctx, client, args)
	case "book":
		bookCmd(ctx, client, args)
	case "help", "-h", "--help":
		printUsage()
	default:
		fmt.Printf("Unknown command: %s\n\n", command)
		printUsage()
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Println(`Booking Simulator - Development tool for seeding the booking API

USAGE:
  simulator <command> [options]

COMMANDS:
  full      Register a host and guests, list properties, book and pay
  populate  Register fake accounts of one role
  book      Book every available property as an existing guest
  help      Show this help message

ENVIRONMENT:
  API_BASE_URL   Booking API URL including the /api prefix (default: http://localhost:8080/api)

EXAMPLES:
  # One host with 5 properties and 3 guests booking them
  simulator full

  # Leave bookings unpaid so you can pay them from the portal
  simulator full --guests=2 --skip-pay

  # Add 10 hosts
  simulator populate --role=host --count=10

  # Book all free properties as an existing guest
  simulator book --email=jane@example.com --password=Secret#123`)
}

func fullCmd(ctx context.Context, client *apiclient.Client, args []string) {
	fs := flag.NewFlagSet("full", flag.ExitOnError)
	properties := fs.Int("properties", len(sampleProperties), "Number of properties the host lists")
	guests := fs.Int("guests", 3, "Number of guests to register")
	nights := fs.Int("nights", 3, "Length of each booking")
	method := fs.String("method", string(domain.PaymentMPesa), "Payment method for each booking")
	skipPay := fs.Bool("skip-pay", false, "Leave bookings pending payment")
	fs.Parse(args)

	if *properties < 1 || *properties > len(sampleProperties) {
		fmt.Printf("Error: --properties must be between 1 and %d\n", len(sampleProperties))
		os.Exit(1)
	}
	payWith := domain.PaymentMethod(strings.ToUpper(*method))
	if !payWith.IsValid() {
		fmt.Printf("Error: unknown payment method %q\n", *method)
		os.Exit(1)
	}

	fmt.Println("=== Booking Simulator: Full Flow ===")
	fmt.Println()

	// 1. Host and listings
	fmt.Print("Creating host account... ")
	host, err := RegisterAccount(ctx, client, domain.RoleHost, 0)
	if err != nil {
		fmt.Printf("FAILED\n  Error: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("OK (%s)\n", host.Email)

	fmt.Printf("Listing %d properties:\n", *properties)
	var listed []domain.Property
	for _, in := range sampleProperties[:*properties] {
		p, err := host.Client.CreateProperty(ctx, in)
		if err != nil {
			fmt.Printf("  %s: FAILED (%v)\n", in.Name, err)
			continue
		}
		fmt.Printf("  %s: %s %s/night\n", p.Name, p.Currency, domain.FormatAmount(p.PricePerNight))
		listed = append(listed, *p)
	}
	if len(listed) == 0 {
		fmt.Println("No properties listed, stopping")
		os.Exit(1)
	}

	// 2. Guests book consecutive stays so ranges never overlap
	fmt.Println()
	fmt.Printf("Registering %d guests:\n", *guests)
	booked := 0
	for i := 1; i <= *guests; i++ {
		guest, err := RegisterAccount(ctx, client, domain.RoleGuest, i)
		if err != nil {
			fmt.Printf("  Guest %d: FAILED (%v)\n", i, err)
			continue
		}
		fmt.Printf("  Guest %d: %s\n", i, guest.Email)

		prop := listed[(i-1)%len(listed)]
		start := time.Now().AddDate(0, 0, 7+(i-1)*(*nights+1))
		b, err := bookStay(ctx, guest, prop, start, *nights)
		if err != nil {
			fmt.Printf("    Booking %s: FAILED (%v)\n", prop.Name, err)
			continue
		}
		booked++
		fmt.Printf("    Booked %s %s..%s total %s\n", prop.Name, b.StartDate, b.EndDate, domain.FormatAmount(b.TotalPrice))

		if *skipPay {
			continue
		}
		if err := payStay(ctx, guest, b, payWith); err != nil {
			fmt.Printf("    Payment: FAILED (%v)\n", err)
			continue
		}
		fmt.Printf("    Payment via %s: OK\n", payWith)
	}

	fmt.Println()
	fmt.Println("=== Summary ===")
	fmt.Printf("Host:       %s (password %s)\n", host.Email, simPassword)
	fmt.Printf("Properties: %d\n", len(listed))
	fmt.Printf("Bookings:   %d of %d guests\n", booked, *guests)
}

func populateCmd(ctx context.Context, client *apiclient.Client, args []string) {
	fs := flag.NewFlagSet("populate", flag.ExitOnError)
	roleName := fs.String("role", "guest", "Role of the new accounts (guest or host)")
	count := fs.Int("count", 5, "Number of accounts to register")
	fs.Parse(args)

	role, ok := domain.ParseRole(*roleName)
	if !ok || role == domain.RoleAdmin {
		fmt.Println("Error: --role must be guest or host")
		os.Exit(1)
	}

	fmt.Printf("Registering %d %s accounts:\n", *count, role.DisplayName())
	failed := 0
	for i := 1; i <= *count; i++ {
		acc, err := RegisterAccount(ctx, client, role, i)
		if err != nil {
			fmt.Printf("  %d: FAILED (%v)\n", i, err)
			failed++
			continue
		}
		fmt.Printf("  %d: %s\n", i, acc.Email)
	}

	fmt.Println()
	fmt.Printf("Done. %d registered, %d failed. Password for all: %s\n", *count-failed, failed, simPassword)
}

func bookCmd(ctx context.Context, client *apiclient.Client, args []string) {
	fs := flag.NewFlagSet("book", flag.ExitOnError)
	email := fs.String("email", "", "Guest email (required)")
	password := fs.String("password", "", "Guest password (required)")
	days := fs.Int("in", 14, "Days from today until check-in")
	nights := fs.Int("nights", 2, "Length of each booking")
	fs.Parse(args)

	if *email == "" || *password == "" {
		fmt.Println("Error: --email and --password are required")
		os.Exit(1)
	}

	fmt.Printf("Logging in as %s... ", *email)
	guest, err := Login(ctx, client, *email, *password, domain.RoleGuest)
	if err != nil {
		fmt.Printf("FAILED\n  Error: %v\n", err)
		os.Exit(1)
	}
	fmt.Println("OK")

	start := time.Now().AddDate(0, 0, *days)
	end := start.AddDate(0, 0, *nights)
	free, err := guest.Client.AvailableProperties(ctx, domain.NewDate(start), domain.NewDate(end))
	if err != nil {
		fmt.Printf("Failed to fetch available properties: %v\n", err)
		os.Exit(1)
	}
	if len(free) == 0 {
		fmt.Println("No properties available for those dates")
		return
	}

	fmt.Printf("Booking %d available properties:\n", len(free))
	for _, prop := range free {
		b, err := bookStay(ctx, guest, prop, start, *nights)
		if err != nil {
			fmt.Printf("  %s: FAILED (%v)\n", prop.Name, err)
			continue
		}
		fmt.Printf("  %s: %s (%s)\n", prop.Name, b.ID, b.Status)
	}
}

// bookStay quotes and books nights starting at start
func bookStay(ctx context.Context, acc *Account, prop domain.Property, start time.Time, nights int) (*domain.Booking, error) {
	from := domain.NewDate(start)
	to := domain.NewDate(start.AddDate(0, 0, nights))

	if _, err := acc.Client.CalculatePrice(ctx, prop.ID, from, to); err != nil {
		return nil, fmt.Errorf("quote: %w", err)
	}
	return acc.Client.CreateBooking(ctx, domain.BookingRequest{
		PropertyID: prop.ID,
		StartDate:  from,
		EndDate:    to,
	})
}

func payStay(ctx context.Context, acc *Account, b *domain.Booking, method domain.PaymentMethod) error {
	req := domain.PaymentRequest{
		BookingID:     b.ID,
		Amount:        b.TotalPrice,
		PaymentMethod: method,
	}
	if method.RequiresPhone() {
		req.PhoneNumber = "0712345678"
	}
	_, err := acc.Client.Pay(ctx, req)
	return err
}
