package domain

import (
	"errors"
	"testing"

	"pgregory.net/rapid"
)

func firstPick(int) int { return 0 }

func TestInstanceSelectorSelect(t *testing.T) {
	localUp := Instance{ID: "local-up", URL: "http://local", Running: true, Active: true, Locality: LocalityLocal}
	remoteUp := Instance{ID: "remote-up", URL: "http://remote", Running: true, Active: true, Locality: LocalityRemote}
	remoteDown := Instance{ID: "remote-down", URL: "http://down", Running: false, Active: true, Locality: LocalityRemote}
	localInactive := Instance{ID: "local-inactive", URL: "http://off", Running: true, Active: false, Locality: LocalityLocal}

	tests := []struct {
		name    string
		input   SelectionInput
		wantID  string
		wantErr error
	}{
		{
			name: "explicit eligible instance wins",
			input: SelectionInput{
				Service:    &Service{Instances: []Instance{remoteUp, localUp}},
				InstanceID: "local-up",
			},
			wantID: "local-up",
		},
		{
			name: "explicit ineligible instance is ignored",
			input: SelectionInput{
				Service:    &Service{Instances: []Instance{remoteDown, remoteUp}},
				InstanceID: "remote-down",
			},
			wantID: "remote-up",
		},
		{
			name: "local gateway prefers local instances",
			input: SelectionInput{
				Service:         &Service{Instances: []Instance{remoteUp, localUp}},
				GatewayLocality: LocalityLocal,
			},
			wantID: "local-up",
		},
		{
			name: "local gateway falls back to any eligible instance",
			input: SelectionInput{
				Service:         &Service{Instances: []Instance{localInactive, remoteUp}},
				GatewayLocality: LocalityLocal,
			},
			wantID: "remote-up",
		},
		{
			name: "test mode service on test deployment is restricted to local",
			input: SelectionInput{
				Service:            &Service{TestMode: true, Instances: []Instance{remoteUp, localUp}},
				GatewayLocality:    LocalityRemote,
				DeploymentTestMode: true,
			},
			wantID: "local-up",
		},
		{
			name: "test mode service without local instance has no candidate",
			input: SelectionInput{
				Service:            &Service{TestMode: true, Instances: []Instance{remoteUp}},
				DeploymentTestMode: true,
			},
			wantErr: ErrNoInstance,
		},
		{
			name: "test mode service on normal deployment uses every eligible instance",
			input: SelectionInput{
				Service: &Service{TestMode: true, Instances: []Instance{remoteUp}},
			},
			wantID: "remote-up",
		},
		{
			name: "no eligible instance",
			input: SelectionInput{
				Service: &Service{Instances: []Instance{remoteDown, localInactive}},
			},
			wantErr: ErrNoInstance,
		},
	}

	selector := NewInstanceSelectorWithRand(firstPick)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := selector.Select(tt.input)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("Select() error = %v, want %v", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("Select() unexpected error: %v", err)
			}
			if got.ID != tt.wantID {
				t.Errorf("Select() = %s, want %s", got.ID, tt.wantID)
			}
		})
	}
}

func TestInstanceSelectorUsesWholeCandidateSet(t *testing.T) {
	svc := &Service{Instances: []Instance{
		{ID: "a", Running: true, Active: true},
		{ID: "b", Running: true, Active: true},
		{ID: "c", Running: true, Active: false},
	}}

	var seenN int
	selector := NewInstanceSelectorWithRand(func(n int) int {
		seenN = n
		return n - 1
	})

	got, err := selector.Select(SelectionInput{Service: svc})
	if err != nil {
		t.Fatalf("Select() unexpected error: %v", err)
	}
	if seenN != 2 {
		t.Errorf("random source called with n=%d, want 2", seenN)
	}
	if got.ID != "b" {
		t.Errorf("Select() = %s, want b", got.ID)
	}
}

func TestInstanceSelectorNeverReturnsIneligibleProperty(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		count := rapid.IntRange(0, 8).Draw(t, "count")
		instances := make([]Instance, count)
		for i := range instances {
			locality := LocalityRemote
			if rapid.Bool().Draw(t, "local") {
				locality = LocalityLocal
			}
			instances[i] = Instance{
				ID:       rapid.StringMatching(`[a-d]`).Draw(t, "id"),
				Running:  rapid.Bool().Draw(t, "running"),
				Active:   rapid.Bool().Draw(t, "active"),
				Locality: locality,
			}
		}

		gatewayLocality := LocalityRemote
		if rapid.Bool().Draw(t, "gateway_local") {
			gatewayLocality = LocalityLocal
		}

		in := SelectionInput{
			Service: &Service{
				TestMode:  rapid.Bool().Draw(t, "service_test_mode"),
				Instances: instances,
			},
			InstanceID:         rapid.StringMatching(`[a-e]?`).Draw(t, "instance_id"),
			GatewayLocality:    gatewayLocality,
			DeploymentTestMode: rapid.Bool().Draw(t, "deployment_test_mode"),
		}

		selector := NewInstanceSelector()
		got, err := selector.Select(in)
		if err != nil {
			if !errors.Is(err, ErrNoInstance) {
				t.Fatalf("unexpected error: %v", err)
			}
			return
		}
		if !got.Running || !got.Active {
			t.Fatalf("selected ineligible instance %+v", got)
		}
	})
}
