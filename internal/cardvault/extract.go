package cardvault

import (
	"regexp"
	"strings"
)

var (
	nameRe       = regexp.MustCompile(`(?i)^[A-Z][a-z]+(?:\s+[A-Z][a-z]+)*$`)
	companyRe    = regexp.MustCompile(`(?i)Company:([\w\s]+)`)
	jobTitleRe   = regexp.MustCompile(`(?i)Title:([\w\s]+)`)
	cardNumberRe = regexp.MustCompile(`\b\d{8,16}\b`)
	emailRe      = regexp.MustCompile(`(?i)[a-z0-9._%+-]+@[a-z0-9.-]+\.[a-z]{2,}`)
	phoneRe      = regexp.MustCompile(`(?:\+\d{1,3}[-.\s]?)?\(?\d{3}\)?[-.\s]?\d{3}[-.\s]?\d{4}`)
	websiteRe    = regexp.MustCompile(`(?i)(?:https?://)?(?:www\.)?[a-z0-9-]+(?:\.[a-z]{2,})+`)
	addressRe    = regexp.MustCompile(`(?i)\d+\s+[\w\s.,]+(?:Street|St|Avenue|Ave|Road|Rd|Boulevard|Blvd)[\w\s.,]*`)

	phoneFallbackRe = regexp.MustCompile(`(?:\+?\d{1,3}[\s.-]?)?(?:\(?\d{2,4}\)?[\s.-]?)?\d{3,4}[\s.-]?\d{3,4}`)
	nonDigitRe      = regexp.MustCompile(`\D`)
)

type matcher struct {
	field func(*Fields) **string
	match func(line string) (string, bool)
}

func whole(re *regexp.Regexp) func(string) (string, bool) {
	return func(line string) (string, bool) {
		m := re.FindString(line)
		return m, m != ""
	}
}

// labelled returns the text after a "Label:" prefix. The capture keeps
// matching up to the first character that is neither a word nor a space.
func labelled(re *regexp.Regexp) func(string) (string, bool) {
	return func(line string) (string, bool) {
		m := re.FindStringSubmatch(line)
		if m == nil {
			return "", false
		}
		v := strings.TrimSpace(m[1])
		return v, v != ""
	}
}

// matchers run in field order; the first line that matches a field wins.
// Every pattern ignores case, so an email line also yields its domain as
// the website.
var matchers = []matcher{
	{func(f *Fields) **string { return &f.Name }, whole(nameRe)},
	{func(f *Fields) **string { return &f.Company }, labelled(companyRe)},
	{func(f *Fields) **string { return &f.JobTitle }, labelled(jobTitleRe)},
	{func(f *Fields) **string { return &f.CardNumber }, whole(cardNumberRe)},
	{func(f *Fields) **string { return &f.Email }, whole(emailRe)},
	{func(f *Fields) **string { return &f.PhoneNumber }, whole(phoneRe)},
	{func(f *Fields) **string { return &f.Website }, whole(websiteRe)},
	{func(f *Fields) **string { return &f.Address }, whole(addressRe)},
}

// Extract pulls contact fields out of OCR text. It is a pure function of
// its input.
func Extract(text string) Fields {
	var f Fields
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		for _, m := range matchers {
			dst := m.field(&f)
			if *dst != nil {
				continue
			}
			if v, ok := m.match(line); ok {
				*dst = ptr(v)
			}
		}
	}
	if f.PhoneNumber == nil {
		f.PhoneNumber = findPhone(text)
	}
	return f
}

// findPhone scans the whole text for a phone-like run of 7 to 15 digits.
func findPhone(text string) *string {
	for _, m := range phoneFallbackRe.FindAllString(text, -1) {
		if n := len(nonDigitRe.ReplaceAllString(m, "")); n >= 7 && n <= 15 {
			return ptr(m)
		}
	}
	return nil
}

var allowedExt = map[string]bool{"png": true, "jpg": true, "jpeg": true, "gif": true}

// AllowedFile reports whether filename has an accepted image extension.
func AllowedFile(filename string) bool {
	i := strings.LastIndexByte(filename, '.')
	if i < 0 {
		return false
	}
	return allowedExt[strings.ToLower(filename[i+1:])]
}
