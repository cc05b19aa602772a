package main

import (
	"bytes"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"time"
)

type analysis struct {
	RequestID string `json:"request_id"`
	Header    string `json:"header"`
	Detail    string `json:"detail"`
	Decision  struct {
		Label      string  `json:"label"`
		Confidence float64 `json:"confidence"`
		Similarity float64 `json:"similarity"`
		Source     string  `json:"source"`
	} `json:"decision"`
}

func main() {
	baseURL := flag.String("url", "http://localhost:8080", "server base URL")
	timeout := flag.Duration("timeout", 90*time.Second, "per request timeout")
	flag.Parse()

	if flag.NArg() != 1 {
		fmt.Fprintln(os.Stderr, "usage: smoke [-url http://localhost:8080] <image>")
		os.Exit(2)
	}
	imagePath := flag.Arg(0)

	data, err := os.ReadFile(imagePath)
	if err != nil {
		fmt.Printf("Error reading image: %v\n", err)
		os.Exit(1)
	}

	client := &http.Client{Timeout: *timeout}

	fmt.Println("1. Classifying...")
	if _, ok := upload(client, *baseURL+"/classify", filepath.Base(imagePath), data); !ok {
		fmt.Println("FAILED: Classify")
		os.Exit(1)
	}
	fmt.Println("PASSED: Classify")

	fmt.Println("2. Analyzing...")
	a, ok := upload(client, *baseURL+"/analyze", filepath.Base(imagePath), data)
	if !ok {
		fmt.Println("FAILED: Analyze")
		os.Exit(1)
	}
	fmt.Println("PASSED: Analyze")
	fmt.Println()
	fmt.Println(a.Header)
	fmt.Println()
	fmt.Println(a.Detail)
}

func upload(client *http.Client, url, filename string, data []byte) (*analysis, bool) {
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	fw, err := mw.CreateFormFile("image", filename)
	if err != nil {
		fmt.Printf("Error creating form: %v\n", err)
		return nil, false
	}
	if _, err := fw.Write(data); err != nil {
		fmt.Printf("Error writing form: %v\n", err)
		return nil, false
	}
	if err := mw.Close(); err != nil {
		fmt.Printf("Error closing form: %v\n", err)
		return nil, false
	}

	req, err := http.NewRequest(http.MethodPost, url, &body)
	if err != nil {
		fmt.Printf("Error creating request: %v\n", err)
		return nil, false
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())

	resp, err := client.Do(req)
	if err != nil {
		fmt.Printf("Error sending request: %v\n", err)
		return nil, false
	}
	defer resp.Body.Close()

	respBody, _ := io.ReadAll(resp.Body)
	if resp.StatusCode != http.StatusOK {
		fmt.Printf("Request failed with status %d: %s\n", resp.StatusCode, string(respBody))
		return nil, false
	}

	var a analysis
	if err := json.Unmarshal(respBody, &a); err != nil {
		fmt.Printf("Error decoding response: %v\n", err)
		return nil, false
	}
	fmt.Printf("Request %s: %q via %s (confidence %.3f, similarity %.2f)\n",
		a.RequestID, a.Decision.Label, a.Decision.Source, a.Decision.Confidence, a.Decision.Similarity)
	return &a, true
}
