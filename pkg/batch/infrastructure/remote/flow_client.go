// Package remote implements the Flow REST API client used to read executions
// and samples and to start pipeline runs.
package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"golang.org/x/oauth2"

	port "github.com/ulelab/flowAPIscripts/pkg/batch/core/application/port"
	config "github.com/ulelab/flowAPIscripts/pkg/batch/core/config"
	model "github.com/ulelab/flowAPIscripts/pkg/batch/core/domain/model"
	"github.com/ulelab/flowAPIscripts/pkg/batch/support/util/configbinder"
	"github.com/ulelab/flowAPIscripts/pkg/batch/support/util/exception"
	logger "github.com/ulelab/flowAPIscripts/pkg/batch/support/util/logger"
	"github.com/ulelab/flowAPIscripts/pkg/batch/support/util/serialization"
)

const moduleName = "flow_client"

// maxErrorBody caps how much of an error response is quoted in messages.
const maxErrorBody = 4096

// FlowClient talks to the Flow REST API with a bearer credential.
type FlowClient struct {
	baseURL        string
	httpClient     *http.Client
	requestTimeout time.Duration
	submitTimeout  time.Duration
}

// NewFlowClient creates a client whose requests carry the token from source.
func NewFlowClient(api *config.APIConfig, source oauth2.TokenSource) *FlowClient {
	return NewFlowClientWithHTTP(api, source, http.DefaultClient)
}

// NewFlowClientWithHTTP is NewFlowClient with an explicit base client, whose
// transport is wrapped to add the Authorization header.
func NewFlowClientWithHTTP(api *config.APIConfig, source oauth2.TokenSource, base *http.Client) *FlowClient {
	ctx := context.WithValue(context.Background(), oauth2.HTTPClient, base)
	return &FlowClient{
		baseURL:        strings.TrimRight(api.BaseURL, "/"),
		httpClient:     oauth2.NewClient(ctx, source),
		requestTimeout: time.Duration(api.RequestTimeoutSeconds) * time.Second,
		submitTimeout:  time.Duration(api.SubmitTimeoutSeconds) * time.Second,
	}
}

// FetchExecution retrieves an execution record with its declared inputs and step outputs.
func (c *FlowClient) FetchExecution(ctx context.Context, executionID string) (*model.PrepExecution, error) {
	var ex model.PrepExecution
	path := "/executions/" + url.PathEscape(executionID)
	if err := c.doJSON(ctx, http.MethodGet, path, nil, nil, c.requestTimeout, &ex); err != nil {
		return nil, err
	}
	logger.Debugf("Fetched execution %s: %d declared inputs, %d process executions", executionID, len(ex.DataParams), len(ex.ProcessExecutions))
	return &ex, nil
}

type samplePage struct {
	Samples []map[string]interface{} `json:"samples"`
}

// FetchSamplePage retrieves one 1-indexed page of a project's samples.
func (c *FlowClient) FetchSamplePage(ctx context.Context, projectID string, page, count int) ([]model.Sample, error) {
	query := url.Values{}
	query.Set("page", strconv.Itoa(page))
	query.Set("count", strconv.Itoa(count))

	var body samplePage
	path := "/projects/" + url.PathEscape(projectID) + "/samples"
	if err := c.doJSON(ctx, http.MethodGet, path, query, nil, c.requestTimeout, &body); err != nil {
		return nil, err
	}

	samples := make([]model.Sample, 0, len(body.Samples))
	for i, record := range body.Samples {
		var s model.Sample
		if err := configbinder.DecodeRecord(record, &s); err != nil {
			return nil, exception.NewBatchErrorf(moduleName, exception.KindUpstreamData, "sample %d on page %d is malformed: %v", i, page, err)
		}
		samples = append(samples, s)
	}
	return samples, nil
}

type pipelineVersion struct {
	ID   model.ID `json:"id"`
	Name string   `json:"name"`
}

type pipelineRecord struct {
	Versions []pipelineVersion `json:"versions"`
}

// ResolveVersionID finds the id of the version whose name equals versionLabel.
func (c *FlowClient) ResolveVersionID(ctx context.Context, pipelineID, versionLabel string) (string, error) {
	var p pipelineRecord
	if err := c.doJSON(ctx, http.MethodGet, "/pipelines/"+url.PathEscape(pipelineID), nil, nil, c.requestTimeout, &p); err != nil {
		return "", err
	}
	for _, v := range p.Versions {
		if v.Name == versionLabel {
			return v.ID.String(), nil
		}
	}
	return "", exception.NewBatchErrorf(moduleName, exception.KindConfiguration, "version %q not found on pipeline %s", versionLabel, pipelineID)
}

type submissionResponse struct {
	ID model.ID `json:"id"`
}

// SubmitExecution starts a pipeline run. A response without an id is an error.
func (c *FlowClient) SubmitExecution(ctx context.Context, request *model.ExecutionRequest) (model.ID, error) {
	payload, err := json.Marshal(request)
	if err != nil {
		return "", exception.NewBatchError(moduleName, exception.KindSubmission, "failed to encode execution request", err)
	}
	logger.Debugf("Submitting batch %d to version %s: %s", request.BatchIndex, request.PipelineVersionID, string(payload))

	var resp submissionResponse
	raw, err := c.do(ctx, http.MethodPost, "/pipelines/versions/"+url.PathEscape(request.PipelineVersionID)+"/run", nil, payload, c.submitTimeout)
	if err != nil {
		return "", err
	}
	if err := json.Unmarshal(raw, &resp); err != nil {
		return "", exception.NewBatchError(moduleName, exception.KindSubmission, "failed to decode submission response", err)
	}
	if resp.ID.IsZero() {
		return "", exception.NewBatchErrorf(moduleName, exception.KindSubmission, "submission succeeded but no execution id in response: %s", truncate(raw))
	}
	return resp.ID, nil
}

func (c *FlowClient) doJSON(ctx context.Context, method, path string, query url.Values, body []byte, timeout time.Duration, out interface{}) error {
	raw, err := c.do(ctx, method, path, query, body, timeout)
	if err != nil {
		return err
	}
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	if err := dec.Decode(out); err != nil {
		return exception.NewBatchError(moduleName, exception.KindUpstreamData, fmt.Sprintf("failed to decode response from %s", path), err)
	}
	return nil
}

// do performs one request and returns the body of a 2xx response.
// Any other status becomes a transport error quoting the response body.
func (c *FlowClient) do(ctx context.Context, method, path string, query url.Values, body []byte, timeout time.Duration) ([]byte, error) {
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	endpoint := c.baseURL + path
	if len(query) > 0 {
		endpoint += "?" + query.Encode()
	}
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, endpoint, reader)
	if err != nil {
		return nil, exception.NewBatchError(moduleName, exception.KindTransport, "failed to create request", err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	logger.Debugf("%s %s", method, endpoint)
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, exception.NewBatchError(moduleName, exception.KindTransport, fmt.Sprintf("%s %s failed", method, path), err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, exception.NewBatchError(moduleName, exception.KindTransport, fmt.Sprintf("failed to read response from %s", path), err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, exception.NewBatchError(moduleName, exception.KindTransport, fmt.Sprintf("HTTP %d error: %s", resp.StatusCode, truncate(raw)), nil)
	}
	return raw, nil
}

func truncate(raw []byte) string {
	if len(raw) > maxErrorBody {
		return string(raw[:maxErrorBody]) + "..."
	}
	return string(raw)
}

// describeLogin renders a login request for debug output without the password.
func describeLogin(username, password string) string {
	return serialization.CompactString(serialization.MaskSecrets(map[string]interface{}{
		"username": username,
		"password": password,
	}))
}

var (
	_ port.ExecutionSource   = (*FlowClient)(nil)
	_ port.SamplePageSource  = (*FlowClient)(nil)
	_ port.PipelineCatalog   = (*FlowClient)(nil)
	_ port.PipelineSubmitter = (*FlowClient)(nil)
)
