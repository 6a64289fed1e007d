package launcher

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	batchv1 "k8s.io/api/batch/v1"
	corev1 "k8s.io/api/core/v1"
	apierrors "k8s.io/apimachinery/pkg/api/errors"
	"k8s.io/apimachinery/pkg/api/resource"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/client-go/kubernetes"
	"k8s.io/client-go/rest"
	"k8s.io/client-go/tools/clientcmd"

	"jobplane/internal/nodeid"
	"jobplane/internal/runner"
)

// KubernetesConfig configures the KubernetesLauncher.
type KubernetesConfig struct {
	Namespace          string
	ServiceAccount     string
	Image              string
	DefaultCPULimit    string
	DefaultMemoryLimit string
}

// KubernetesLauncher provisions a worker as a single-pod batchv1.Job,
// deleting the Job (with foreground propagation, to also remove the
// pod) if it hasn't finished by the time the continuation returns.
type KubernetesLauncher struct {
	base

	clientset kubernetes.Interface
	config    KubernetesConfig
}

func homeDir() string {
	if h := os.Getenv("HOME"); h != "" {
		return h
	}
	return os.Getenv("USERPROFILE")
}

// NewKubernetesLauncher builds a KubernetesLauncher, trying in-cluster
// configuration first and falling back to the local kubeconfig.
func NewKubernetesLauncher(cfg KubernetesConfig, opts ...Option) (*KubernetesLauncher, error) {
	config, err := rest.InClusterConfig()
	if err != nil {
		kubeconfig := filepath.Join(homeDir(), ".kube", "config")
		config, err = clientcmd.BuildConfigFromFlags("", kubeconfig)
		if err != nil {
			return nil, fmt.Errorf("launcher: failed to build kubernetes config: %w", err)
		}
	}

	clientset, err := kubernetes.NewForConfig(config)
	if err != nil {
		return nil, fmt.Errorf("launcher: failed to create kubernetes clientset: %w", err)
	}

	if cfg.Namespace == "" {
		cfg.Namespace = "default"
	}
	if cfg.DefaultCPULimit == "" {
		cfg.DefaultCPULimit = "500m"
	}
	if cfg.DefaultMemoryLimit == "" {
		cfg.DefaultMemoryLimit = "256Mi"
	}

	return &KubernetesLauncher{base: applyOptions(opts), clientset: clientset, config: cfg}, nil
}

// WithLaunchedWorker creates a Job running one pod of the worker image
// carrying the registration environment, invokes body while it runs,
// and deletes the Job afterward if it's still around.
func (k *KubernetesLauncher) WithLaunchedWorker(ctx context.Context, master nodeid.NodeId, service runner.ServiceID, body func(job any) error) error {
	jobName := fmt.Sprintf("jobplane-worker-%s", service)

	env := workerEnv(master, service)
	var envVars []corev1.EnvVar
	for key, value := range env {
		envVars = append(envVars, corev1.EnvVar{Name: key, Value: value})
	}

	resources := corev1.ResourceRequirements{
		Limits: corev1.ResourceList{
			corev1.ResourceCPU:    resource.MustParse(k.config.DefaultCPULimit),
			corev1.ResourceMemory: resource.MustParse(k.config.DefaultMemoryLimit),
		},
	}

	backoffLimit := int32(0) // the remote runner owns retries via hold-on-error, not Kubernetes
	job := &batchv1.Job{
		ObjectMeta: metav1.ObjectMeta{
			Name:      jobName,
			Namespace: k.config.Namespace,
			Labels:    map[string]string{"app.kubernetes.io/managed-by": "jobplane"},
		},
		Spec: batchv1.JobSpec{
			BackoffLimit: &backoffLimit,
			Template: corev1.PodTemplateSpec{
				ObjectMeta: metav1.ObjectMeta{
					Labels: map[string]string{
						"job-name":                     jobName,
						"app.kubernetes.io/managed-by": "jobplane",
					},
				},
				Spec: corev1.PodSpec{
					RestartPolicy: corev1.RestartPolicyNever,
					Containers: []corev1.Container{
						{
							Name:      "worker",
							Image:     k.config.Image,
							Command:   workerArgs(master, service, ""),
							Env:       envVars,
							Resources: resources,
						},
					},
				},
			},
		},
	}
	if k.config.ServiceAccount != "" {
		job.Spec.Template.Spec.ServiceAccountName = k.config.ServiceAccount
	}

	created, err := k.clientset.BatchV1().Jobs(k.config.Namespace).Create(ctx, job, metav1.CreateOptions{})
	if err != nil {
		return fmt.Errorf("launcher: failed to create worker job: %w", err)
	}
	slog.Info("launcher: created worker job", "service", service, "job", created.Name, "namespace", k.config.Namespace)

	bodyErr := body(created.Name)

	existing, err := k.clientset.BatchV1().Jobs(k.config.Namespace).Get(ctx, created.Name, metav1.GetOptions{})
	if err != nil {
		if !apierrors.IsNotFound(err) {
			slog.Warn("launcher: failed to inspect worker job during teardown", "service", service, "error", err)
		}
	} else if existing.Status.CompletionTime == nil {
		propagation := metav1.DeletePropagationForeground
		if err := k.clientset.BatchV1().Jobs(k.config.Namespace).Delete(ctx, created.Name, metav1.DeleteOptions{
			PropagationPolicy: &propagation,
		}); err != nil {
			slog.Warn("launcher: failed to delete worker job", "service", service, "error", err)
		}
	}

	return bodyErr
}
