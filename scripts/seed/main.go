package main

import (
	"bytes"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"
)

type employee struct {
	EmployeeNo string `json:"employee_no"`
	FullName   string `json:"full_name"`
	Department string `json:"department"`
	Position   string `json:"position,omitempty"`
	Building   string `json:"building,omitempty"`
	Line       string `json:"line,omitempty"`
}

type program struct {
	Code         string `json:"code"`
	Name         string `json:"name"`
	NameLocal    string `json:"name_local,omitempty"`
	Category     string `json:"category"`
	PassingScore int    `json:"passing_score"`
	GradeAA      int    `json:"grade_aa"`
	GradeA       int    `json:"grade_a"`
	GradeB       int    `json:"grade_b"`
	ValidityDays *int   `json:"validity_days,omitempty"`
}

type resultItem struct {
	EmployeeID   string `json:"employee_id"`
	ProgramCode  string `json:"program_code"`
	TrainingDate string `json:"training_date"`
	Score        *int   `json:"score,omitempty"`
	Result       string `json:"result"`
	Remarks      string `json:"remarks,omitempty"`
}

type session struct {
	EvaluatedBy string       `json:"evaluated_by"`
	Items       []resultItem `json:"items"`
}

type fixture struct {
	Employees []employee `json:"employees"`
	Programs  []program  `json:"programs"`
	Sessions  []session  `json:"sessions"`
}

func main() {
	var (
		baseURL     string
		fixturePath string
		email       string
		password    string
		timeout     time.Duration
	)

	flag.StringVar(&baseURL, "base", "http://localhost:8080/api/v1", "API base URL")
	flag.StringVar(&fixturePath, "fixture", filepath.Join("scripts", "seed", "fixture.json"), "Path to JSON fixture file")
	flag.StringVar(&email, "email", "admin@seiwa.example", "Admin login email")
	flag.StringVar(&password, "password", "", "Admin login password (or SEED_PASSWORD env)")
	flag.DurationVar(&timeout, "timeout", 10*time.Second, "HTTP client timeout")
	flag.Parse()

	if password == "" {
		password = os.Getenv("SEED_PASSWORD")
	}
	if password == "" {
		log.Fatal("no password given: use -password or SEED_PASSWORD")
	}

	fix, err := loadFixture(fixturePath)
	if err != nil {
		log.Fatalf("failed to load fixture: %v", err)
	}

	client := &seedClient{
		base:   strings.TrimRight(baseURL, "/"),
		client: &http.Client{Timeout: timeout},
	}
	if err := client.login(email, password); err != nil {
		log.Fatalf("login failed: %v", err)
	}

	// Employee IDs are server generated, so fixture sessions reference
	// employee_no and get rewritten to the created IDs before posting.
	idByNo := map[string]string{}
	for _, emp := range fix.Employees {
		id, err := client.createEmployee(emp)
		if err != nil {
			log.Fatalf("create employee %s: %v", emp.EmployeeNo, err)
		}
		idByNo[emp.EmployeeNo] = id
		fmt.Printf("employee %-8s -> %s\n", emp.EmployeeNo, id)
	}

	for _, prog := range fix.Programs {
		if err := client.createProgram(prog); err != nil {
			log.Fatalf("create program %s: %v", prog.Code, err)
		}
		fmt.Printf("program  %s\n", prog.Code)
	}

	for i, sess := range fix.Sessions {
		for j := range sess.Items {
			if id, ok := idByNo[sess.Items[j].EmployeeID]; ok {
				sess.Items[j].EmployeeID = id
			}
		}
		if err := client.recordSession(sess); err != nil {
			log.Fatalf("record session %d: %v", i+1, err)
		}
		fmt.Printf("session  %d (%d results)\n", i+1, len(sess.Items))
	}

	fmt.Printf("Seeded %d employees, %d programs, %d sessions\n",
		len(fix.Employees), len(fix.Programs), len(fix.Sessions))
}

func loadFixture(path string) (*fixture, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var fix fixture
	if err := json.Unmarshal(data, &fix); err != nil {
		return nil, err
	}
	if len(fix.Employees) == 0 && len(fix.Programs) == 0 && len(fix.Sessions) == 0 {
		return nil, fmt.Errorf("fixture %s is empty", path)
	}
	return &fix, nil
}

type seedClient struct {
	base   string
	client *http.Client
	token  string
}

func (c *seedClient) login(email, password string) error {
	body, err := c.post("/auth/login", map[string]string{"email": email, "password": password})
	if err != nil {
		return err
	}
	var envelope struct {
		Data struct {
			AccessToken string `json:"access_token"`
		} `json:"data"`
	}
	if err := json.Unmarshal(body, &envelope); err != nil {
		return err
	}
	if envelope.Data.AccessToken == "" {
		return fmt.Errorf("no access token in login response")
	}
	c.token = envelope.Data.AccessToken
	return nil
}

func (c *seedClient) createEmployee(emp employee) (string, error) {
	body, err := c.post("/employees", emp)
	if err != nil {
		return "", err
	}
	var envelope struct {
		Data struct {
			ID string `json:"id"`
		} `json:"data"`
	}
	if err := json.Unmarshal(body, &envelope); err != nil {
		return "", err
	}
	return envelope.Data.ID, nil
}

func (c *seedClient) createProgram(prog program) error {
	_, err := c.post("/programs", prog)
	return err
}

func (c *seedClient) recordSession(sess session) error {
	_, err := c.post("/results", sess)
	return err
}

func (c *seedClient) post(path string, payload interface{}) ([]byte, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	req, err := http.NewRequest(http.MethodPost, c.base+path, bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	resp, err := c.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode >= http.StatusBadRequest {
		return nil, fmt.Errorf("POST %s: status %d: %s", path, resp.StatusCode, strings.TrimSpace(string(body)))
	}
	return body, nil
}
