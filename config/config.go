package config

import (
	"fmt"
	"net/url"
	"time"
)

// Config holds scraper configuration.
type Config struct {
	BaseURL       string
	Pages         int
	RequestDelay  time.Duration
	PageDelay     time.Duration
	Timeout       time.Duration
	RobotsTimeout time.Duration
	CheckRobots   bool
	OutputDir     string
	LogFile       string
	UserAgent     string
	AcceptLang    string
	Verbose       bool
	MetricsAddr   string
}

// DefaultConfig returns conservative defaults for the demo target.
func DefaultConfig() *Config {
	return &Config{
		BaseURL:       "http://books.toscrape.com",
		Pages:         3,
		RequestDelay:  time.Second,
		PageDelay:     2 * time.Second,
		Timeout:       15 * time.Second,
		RobotsTimeout: 10 * time.Second,
		CheckRobots:   true,
		OutputDir:     "results",
		LogFile:       "scraping.log",
		UserAgent:     "BookAnalyzer/1.0 (+https://github.com/aluiziolira/book-analyzer)",
		AcceptLang:    "en-GB,en;q=0.9",
		Verbose:       false,
	}
}

// Validate ensures all configuration values are coherent.
func (c *Config) Validate() error {
	if c.BaseURL == "" {
		return fmt.Errorf("base URL cannot be empty")
	}

	parsedURL, err := url.Parse(c.BaseURL)
	if err != nil {
		return fmt.Errorf("invalid base URL: %w", err)
	}
	if parsedURL.Host == "" {
		return fmt.Errorf("base URL must include a host")
	}
	if parsedURL.Scheme != "http" && parsedURL.Scheme != "https" {
		return fmt.Errorf("base URL scheme must be http or https")
	}

	if c.Pages < 0 {
		return fmt.Errorf("pages cannot be negative")
	}
	if c.RequestDelay < 0 {
		return fmt.Errorf("request delay cannot be negative")
	}
	if c.PageDelay < 0 {
		return fmt.Errorf("page delay cannot be negative")
	}
	if c.Timeout <= 0 {
		return fmt.Errorf("timeout must be positive")
	}
	if c.RobotsTimeout <= 0 {
		return fmt.Errorf("robots timeout must be positive")
	}
	if c.OutputDir == "" {
		return fmt.Errorf("output dir cannot be empty")
	}
	if c.UserAgent == "" {
		return fmt.Errorf("user agent cannot be empty")
	}

	return nil
}
