package classroom

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/rs/zerolog"
)

var (
	// ErrUnavailable indicates a network failure or upstream server error.
	// Callers may retry with backoff; this package never retries itself.
	ErrUnavailable = errors.New("upstream unavailable")
	// ErrRejected indicates the upstream declined the request, for example
	// because the principal lacks access to the course. Not retryable.
	ErrRejected = errors.New("upstream rejected request")
)

// CourseScope narrows a course listing to the caller's relationship with the
// courses.
type CourseScope string

const (
	// ScopeAll lists every course visible to the caller.
	ScopeAll CourseScope = "all"
	// ScopeTeaching lists courses the caller teaches.
	ScopeTeaching CourseScope = "teaching"
	// ScopeEnrolled lists courses the caller is enrolled in.
	ScopeEnrolled CourseScope = "enrolled"
)

// AllCourseWork is the coursework selector meaning "every assignment in the
// course" when listing submissions.
const AllCourseWork = "-"

// Client is a stateless wrapper over the upstream learning-management REST
// API. Every list call exhausts pagination before returning, so callers never
// see partial pages. Credentials are supplied per call.
type Client struct {
	baseURL    string
	httpClient *http.Client
	logger     zerolog.Logger
}

// NewClient constructs a Client for the given API base URL.
func NewClient(baseURL string, timeout time.Duration, logger zerolog.Logger) *Client {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	return &Client{
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: timeout},
		logger:     logger.With().Str("component", "classroom_client").Logger(),
	}
}

type coursesPage struct {
	Courses       []Course `json:"courses"`
	NextPageToken string   `json:"nextPageToken"`
}

type courseWorkPage struct {
	CourseWork    []CourseWork `json:"courseWork"`
	NextPageToken string       `json:"nextPageToken"`
}

type submissionsPage struct {
	StudentSubmissions []StudentSubmission `json:"studentSubmissions"`
	NextPageToken      string              `json:"nextPageToken"`
}

type studentsPage struct {
	Students      []Student `json:"students"`
	NextPageToken string    `json:"nextPageToken"`
}

type teachersPage struct {
	Teachers      []Teacher `json:"teachers"`
	NextPageToken string    `json:"nextPageToken"`
}

// ListCourses returns every active course visible to the credential under the
// given scope.
func (c *Client) ListCourses(ctx context.Context, accessToken string, scope CourseScope) ([]Course, error) {
	query := url.Values{}
	query.Set("courseStates", "ACTIVE")

	switch scope {
	case ScopeTeaching:
		query.Set("teacherId", "me")
	case ScopeEnrolled:
		query.Set("studentId", "me")
	}

	var courses []Course
	err := c.paginate(ctx, accessToken, "/v1/courses", query, func(body io.Reader) (string, error) {
		var page coursesPage
		if err := json.NewDecoder(body).Decode(&page); err != nil {
			return "", err
		}
		courses = append(courses, page.Courses...)
		return page.NextPageToken, nil
	})
	if err != nil {
		return nil, err
	}

	return courses, nil
}

// GetCourse fetches a single course by its upstream id.
func (c *Client) GetCourse(ctx context.Context, accessToken, courseID string) (Course, error) {
	var course Course
	if err := c.get(ctx, accessToken, "/v1/courses/"+url.PathEscape(courseID), nil, &course); err != nil {
		return Course{}, err
	}

	return course, nil
}

// ListCourseWork returns every published assignment of a course.
func (c *Client) ListCourseWork(ctx context.Context, accessToken, courseID string) ([]CourseWork, error) {
	query := url.Values{}
	query.Set("courseWorkStates", "PUBLISHED")

	path := fmt.Sprintf("/v1/courses/%s/courseWork", url.PathEscape(courseID))

	var work []CourseWork
	err := c.paginate(ctx, accessToken, path, query, func(body io.Reader) (string, error) {
		var page courseWorkPage
		if err := json.NewDecoder(body).Decode(&page); err != nil {
			return "", err
		}
		work = append(work, page.CourseWork...)
		return page.NextPageToken, nil
	})
	if err != nil {
		return nil, err
	}

	return work, nil
}

// ListSubmissions returns submissions for a course. Pass AllCourseWork (or an
// empty string) as courseWorkID to cover every assignment, and an empty
// userID to cover every student.
func (c *Client) ListSubmissions(ctx context.Context, accessToken, courseID, courseWorkID, userID string) ([]StudentSubmission, error) {
	if courseWorkID == "" {
		courseWorkID = AllCourseWork
	}

	query := url.Values{}
	if userID != "" {
		query.Set("userId", userID)
	}

	path := fmt.Sprintf("/v1/courses/%s/courseWork/%s/studentSubmissions",
		url.PathEscape(courseID), url.PathEscape(courseWorkID))

	var submissions []StudentSubmission
	err := c.paginate(ctx, accessToken, path, query, func(body io.Reader) (string, error) {
		var page submissionsPage
		if err := json.NewDecoder(body).Decode(&page); err != nil {
			return "", err
		}
		submissions = append(submissions, page.StudentSubmissions...)
		return page.NextPageToken, nil
	})
	if err != nil {
		return nil, err
	}

	return submissions, nil
}

// ListStudents returns the course roster.
func (c *Client) ListStudents(ctx context.Context, accessToken, courseID string) ([]Student, error) {
	path := fmt.Sprintf("/v1/courses/%s/students", url.PathEscape(courseID))

	var students []Student
	err := c.paginate(ctx, accessToken, path, nil, func(body io.Reader) (string, error) {
		var page studentsPage
		if err := json.NewDecoder(body).Decode(&page); err != nil {
			return "", err
		}
		students = append(students, page.Students...)
		return page.NextPageToken, nil
	})
	if err != nil {
		return nil, err
	}

	return students, nil
}

// ListTeachers returns the co-teachers of a course.
func (c *Client) ListTeachers(ctx context.Context, accessToken, courseID string) ([]Teacher, error) {
	path := fmt.Sprintf("/v1/courses/%s/teachers", url.PathEscape(courseID))

	var teachers []Teacher
	err := c.paginate(ctx, accessToken, path, nil, func(body io.Reader) (string, error) {
		var page teachersPage
		if err := json.NewDecoder(body).Decode(&page); err != nil {
			return "", err
		}
		teachers = append(teachers, page.Teachers...)
		return page.NextPageToken, nil
	})
	if err != nil {
		return nil, err
	}

	return teachers, nil
}

// paginate walks all pages of a list endpoint sequentially; page N+1 depends
// on the cursor returned by page N.
func (c *Client) paginate(ctx context.Context, accessToken, path string, query url.Values, consume func(io.Reader) (string, error)) error {
	pageToken := ""

	for {
		pageQuery := url.Values{}
		for key, values := range query {
			pageQuery[key] = values
		}
		if pageToken != "" {
			pageQuery.Set("pageToken", pageToken)
		}

		next, err := c.getPage(ctx, accessToken, path, pageQuery, consume)
		if err != nil {
			return err
		}
		if next == "" {
			return nil
		}
		pageToken = next
	}
}

func (c *Client) getPage(ctx context.Context, accessToken, path string, query url.Values, consume func(io.Reader) (string, error)) (string, error) {
	resp, err := c.do(ctx, accessToken, path, query)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	next, err := consume(resp.Body)
	if err != nil {
		return "", fmt.Errorf("%w: decoding response for %s: %v", ErrUnavailable, path, err)
	}

	return next, nil
}

func (c *Client) get(ctx context.Context, accessToken, path string, query url.Values, out interface{}) error {
	resp, err := c.do(ctx, accessToken, path, query)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("%w: decoding response for %s: %v", ErrUnavailable, path, err)
	}

	return nil
}

func (c *Client) do(ctx context.Context, accessToken, path string, query url.Values) (*http.Response, error) {
	endpoint := c.baseURL + path
	if len(query) > 0 {
		endpoint += "?" + query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	req.Header.Set("Authorization", "Bearer "+accessToken)
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return resp, nil
	}

	snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
	resp.Body.Close()

	c.logger.Debug().Int("status", resp.StatusCode).Str("path", path).Msg("upstream request failed")

	if resp.StatusCode >= 500 {
		return nil, fmt.Errorf("%w: %s returned %d", ErrUnavailable, path, resp.StatusCode)
	}

	return nil, fmt.Errorf("%w: %s returned %d: %s", ErrRejected, path, resp.StatusCode, snippet)
}
