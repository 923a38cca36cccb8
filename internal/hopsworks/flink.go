// Copyright 2025 Hopsworks Community
// SPDX-License-Identifier: Apache-2.0

package hopsworks

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v5"
)

// FlinkCluster is a long-running FLINK job together with its active
// execution. Jar and job operations are proxied to the Flink master of
// that execution.
type FlinkCluster struct {
	Name         string
	State        string
	CreationTime string
	Creator      string
	Execution    *Execution
}

// FlinkJar is a jar uploaded to a Flink cluster.
type FlinkJar struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Uploaded int64  `json:"uploaded"`
}

// FlinkJob is a job running inside a Flink cluster.
type FlinkJob struct {
	ID     string `json:"jid"`
	Name   string `json:"name"`
	State  string `json:"state"`
	Status string `json:"status"`
}

// flinkMasterURL is the reverse proxy to the Flink master of a running
// execution. It lives outside the REST API root.
func (c *Client) flinkMasterURL(appID string) string {
	base := strings.TrimSuffix(c.baseURL, "/api")
	return base + "/flinkmaster/" + url.PathEscape(appID)
}

// GetFlinkClusterConfiguration returns the default configuration for a
// new Flink cluster.
func (c *Client) GetFlinkClusterConfiguration(ctx context.Context, projectID int) (map[string]any, error) {
	return c.GetJobConfiguration(ctx, projectID, "FLINK")
}

// SetupFlinkCluster creates (or replaces) the FLINK job backing a
// cluster. When config is nil the default Flink configuration is used.
func (c *Client) SetupFlinkCluster(ctx context.Context, projectID int, name string, config map[string]any) (*Job, error) {
	const op = "setup flink cluster"
	if name == "" {
		return nil, NewError(KindInvalidArgument, op, "cluster name is required")
	}
	if config == nil {
		defaults, err := c.GetFlinkClusterConfiguration(ctx, projectID)
		if err != nil {
			return nil, err
		}
		config = defaults
	}
	config["appName"] = name
	config["type"] = "flinkJobConfiguration"
	return c.CreateJob(ctx, projectID, name, config)
}

// GetFlinkCluster returns the cluster state derived from the FLINK job
// and its most recent execution.
func (c *Client) GetFlinkCluster(ctx context.Context, projectID int, name string) (*FlinkCluster, error) {
	const op = "get flink cluster"
	job, err := c.GetJob(ctx, projectID, name)
	if err != nil {
		return nil, err
	}
	if !strings.EqualFold(job.JobType, "FLINK") {
		return nil, NewError(KindInvalidArgument, op, "job %q is of type %s, not FLINK", name, job.JobType)
	}
	cluster := &FlinkCluster{
		Name:         job.Name,
		State:        "STOPPED",
		CreationTime: job.CreationTime,
		Creator:      job.Creator,
	}
	execs, err := c.ListExecutions(ctx, projectID, name)
	if err != nil {
		return nil, err
	}
	if len(execs) > 0 {
		cluster.Execution = &execs[0]
		cluster.State = execs[0].State
	}
	return cluster, nil
}

// StartFlinkCluster starts a new execution of the cluster job and waits
// until the Flink master is reachable or the timeout elapses.
func (c *Client) StartFlinkCluster(ctx context.Context, projectID int, name string, timeout time.Duration) (*Execution, error) {
	const op = "start flink cluster"
	exec, err := c.RunJob(ctx, projectID, name, "")
	if err != nil {
		return nil, err
	}
	if timeout <= 0 {
		timeout = 30 * time.Minute
	}
	started, err := backoff.Retry(ctx, func() (*Execution, error) {
		current, err := c.GetExecution(ctx, projectID, name, exec.ID)
		if err != nil {
			return nil, backoff.Permanent(err)
		}
		switch current.State {
		case "RUNNING":
			return current, nil
		case "FAILED", "KILLED", "FRAMEWORK_FAILURE", "APP_MASTER_START_FAILED", "INITIALIZATION_FAILED":
			return nil, backoff.Permanent(NewError(KindBackend, op,
				"cluster %q reached state %s while starting", name, current.State))
		default:
			return nil, fmt.Errorf("cluster %q still in state %s", name, current.State)
		}
	}, backoff.WithBackOff(backoff.NewConstantBackOff(5*time.Second)), backoff.WithMaxElapsedTime(timeout))
	if err != nil {
		return nil, err
	}
	return started, nil
}

// StopFlinkCluster stops the running execution of the cluster.
func (c *Client) StopFlinkCluster(ctx context.Context, projectID int, name string) error {
	const op = "stop flink cluster"
	cluster, err := c.GetFlinkCluster(ctx, projectID, name)
	if err != nil {
		return err
	}
	if cluster.Execution == nil {
		return NewError(KindNotFound, op, "cluster %q has no execution to stop", name)
	}
	return c.StopExecution(ctx, projectID, name, cluster.Execution.ID)
}

// runningFlinkExecution resolves the cluster and requires a running
// execution with a YARN application id, which the master proxy needs.
func (c *Client) runningFlinkExecution(ctx context.Context, op string, projectID int, name string) (*Execution, error) {
	cluster, err := c.GetFlinkCluster(ctx, projectID, name)
	if err != nil {
		return nil, err
	}
	exec := cluster.Execution
	if exec == nil || exec.State != "RUNNING" || exec.AppID == "" {
		return nil, NewError(KindUnavailable, op, "cluster %q is not running", name)
	}
	return exec, nil
}

// UploadFlinkJar registers a jar already present on the cluster host
// with the Flink master.
func (c *Client) UploadFlinkJar(ctx context.Context, projectID int, clusterName, jarPath string) error {
	const op = "upload flink jar"
	if jarPath == "" {
		return NewError(KindInvalidArgument, op, "jar path is required")
	}
	exec, err := c.runningFlinkExecution(ctx, op, projectID, clusterName)
	if err != nil {
		return err
	}
	u := c.flinkMasterURL(exec.AppID) + "/jars/upload"
	body := map[string]any{"jarfile": jarPath}
	return c.doRaw(ctx, op, "POST", u, "ApiKey "+c.apiKey, body, nil)
}

// ListFlinkJars returns the jars uploaded to a running cluster.
func (c *Client) ListFlinkJars(ctx context.Context, projectID int, clusterName string) ([]FlinkJar, error) {
	const op = "list flink jars"
	exec, err := c.runningFlinkExecution(ctx, op, projectID, clusterName)
	if err != nil {
		return nil, err
	}
	var resp struct {
		Files []FlinkJar `json:"files"`
	}
	u := c.flinkMasterURL(exec.AppID) + "/jars"
	if err := c.doRaw(ctx, op, "GET", u, "ApiKey "+c.apiKey, nil, &resp); err != nil {
		return nil, err
	}
	return resp.Files, nil
}

// SubmitFlinkJob runs the main class of an uploaded jar on the cluster
// and returns the Flink job id.
func (c *Client) SubmitFlinkJob(ctx context.Context, projectID int, clusterName, jarID, mainClass, jobArguments string) (string, error) {
	const op = "submit flink job"
	if jarID == "" || mainClass == "" {
		return "", NewError(KindInvalidArgument, op, "jar id and main class are required")
	}
	exec, err := c.runningFlinkExecution(ctx, op, projectID, clusterName)
	if err != nil {
		return "", err
	}
	q := url.Values{}
	q.Set("entry-class", mainClass)
	if jobArguments != "" {
		q.Set("program-args", jobArguments)
	}
	u := c.flinkMasterURL(exec.AppID) + "/jars/" + url.PathEscape(jarID) + "/run?" + q.Encode()
	var resp struct {
		JobID string `json:"jobid"`
	}
	if err := c.doRaw(ctx, op, "POST", u, "ApiKey "+c.apiKey, nil, &resp); err != nil {
		return "", err
	}
	if resp.JobID == "" {
		return "", NewError(KindBackend, op, "flink master returned no job id")
	}
	return resp.JobID, nil
}

// ListFlinkJobs returns the jobs known to a running cluster.
func (c *Client) ListFlinkJobs(ctx context.Context, projectID int, clusterName string) ([]FlinkJob, error) {
	const op = "list flink jobs"
	exec, err := c.runningFlinkExecution(ctx, op, projectID, clusterName)
	if err != nil {
		return nil, err
	}
	var resp struct {
		Jobs []FlinkJob `json:"jobs"`
	}
	u := c.flinkMasterURL(exec.AppID) + "/jobs/overview"
	if err := c.doRaw(ctx, op, "GET", u, "ApiKey "+c.apiKey, nil, &resp); err != nil {
		return nil, err
	}
	return resp.Jobs, nil
}

// GetFlinkJob returns one job of a running cluster.
func (c *Client) GetFlinkJob(ctx context.Context, projectID int, clusterName, jobID string) (*FlinkJob, error) {
	const op = "get flink job"
	exec, err := c.runningFlinkExecution(ctx, op, projectID, clusterName)
	if err != nil {
		return nil, err
	}
	var job FlinkJob
	u := c.flinkMasterURL(exec.AppID) + "/jobs/" + url.PathEscape(jobID)
	if err := c.doRaw(ctx, op, "GET", u, "ApiKey "+c.apiKey, nil, &job); err != nil {
		return nil, err
	}
	if job.ID == "" {
		job.ID = jobID
	}
	return &job, nil
}

// FlinkJobState returns the state string of one Flink job.
func (c *Client) FlinkJobState(ctx context.Context, projectID int, clusterName, jobID string) (string, error) {
	job, err := c.GetFlinkJob(ctx, projectID, clusterName, jobID)
	if err != nil {
		return "", err
	}
	if job.State != "" {
		return job.State, nil
	}
	return job.Status, nil
}

// StopFlinkJob requests cancellation of one Flink job.
func (c *Client) StopFlinkJob(ctx context.Context, projectID int, clusterName, jobID string) error {
	const op = "stop flink job"
	exec, err := c.runningFlinkExecution(ctx, op, projectID, clusterName)
	if err != nil {
		return err
	}
	u := c.flinkMasterURL(exec.AppID) + "/jobs/" + url.PathEscape(jobID)
	return c.doRaw(ctx, op, "PATCH", u, "ApiKey "+c.apiKey, nil, nil)
}
