package app

import (
	"fmt"

	"gocloud.dev/blob"
	"gocloud.dev/docstore"

	"github.com/allisson/envoy-gateway/internal/config"
	deviceDomain "github.com/allisson/envoy-gateway/internal/device/domain"
	deviceHTTP "github.com/allisson/envoy-gateway/internal/device/http"
	deviceRepository "github.com/allisson/envoy-gateway/internal/device/repository"
	deviceUseCase "github.com/allisson/envoy-gateway/internal/device/usecase"

	// Register blob drivers for the ingest bucket
	_ "gocloud.dev/blob/azureblob"
	_ "gocloud.dev/blob/fileblob"
	_ "gocloud.dev/blob/gcsblob"
	_ "gocloud.dev/blob/memblob"
	_ "gocloud.dev/blob/s3blob"

	// Register docstore drivers for the boot collection
	_ "gocloud.dev/docstore/awsdynamodb/v2"
	_ "gocloud.dev/docstore/gcpfirestore"
	_ "gocloud.dev/docstore/memdocstore"
)

// IngestBucket returns the bucket opened from INGEST_BUCKET_URL.
func (c *Container) IngestBucket() (*blob.Bucket, error) {
	err := c.once(&c.ingestBucketInit, "ingestBucket", func() (err error) {
		c.ingestBucket, err = blob.OpenBucket(c.ctx, c.config.IngestBucketURL)
		if err != nil {
			return fmt.Errorf("failed to open ingest bucket: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return c.ingestBucket, nil
}

// BootCollection returns the docstore collection opened from BOOT_STORE_URL.
func (c *Container) BootCollection() (*docstore.Collection, error) {
	err := c.once(&c.bootCollectionInit, "bootCollection", func() (err error) {
		c.bootCollection, err = docstore.OpenCollection(c.ctx, c.config.BootStoreURL)
		if err != nil {
			return fmt.Errorf("failed to open boot collection: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return c.bootCollection, nil
}

// BootRepository returns the boot store selected by BOOT_STORE_DRIVER.
func (c *Container) BootRepository() (deviceUseCase.BootRepository, error) {
	err := c.once(&c.bootRepoInit, "bootRepo", func() (err error) {
		c.bootRepo, err = c.initBootRepository()
		return err
	})
	if err != nil {
		return nil, err
	}
	return c.bootRepo, nil
}

// BlobRepository returns the ingest payload store.
func (c *Container) BlobRepository() (deviceUseCase.BlobRepository, error) {
	err := c.once(&c.blobRepoInit, "blobRepo", func() error {
		bucket, err := c.IngestBucket()
		if err != nil {
			return err
		}
		c.blobRepo = deviceRepository.NewBlobRepository(bucket, c.config.IngestBucketURL)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return c.blobRepo, nil
}

// DeviceUseCase returns the device use case, wrapped with metrics.
func (c *Container) DeviceUseCase() (deviceUseCase.DeviceUseCase, error) {
	err := c.once(&c.deviceUseCaseInit, "deviceUseCase", func() (err error) {
		c.deviceUseCase, err = c.initDeviceUseCase()
		return err
	})
	if err != nil {
		return nil, err
	}
	return c.deviceUseCase, nil
}

// DeviceHandler returns the HTTP handler for the device routes.
func (c *Container) DeviceHandler() (*deviceHTTP.DeviceHandler, error) {
	err := c.once(&c.deviceHandlerInit, "deviceHandler", func() error {
		useCase, err := c.DeviceUseCase()
		if err != nil {
			return fmt.Errorf("failed to get device use case for device handler: %w", err)
		}
		c.deviceHandler = deviceHTTP.NewDeviceHandler(useCase, c.Logger())
		return nil
	})
	if err != nil {
		return nil, err
	}
	return c.deviceHandler, nil
}

func (c *Container) initBootRepository() (deviceUseCase.BootRepository, error) {
	switch c.config.BootStoreDriver {
	case config.BootStoreDocstore:
		coll, err := c.BootCollection()
		if err != nil {
			return nil, err
		}
		return deviceRepository.NewDocstoreBootRepository(coll), nil

	case config.BootStorePostgres, config.BootStoreMySQL:
		db, err := c.DB()
		if err != nil {
			return nil, fmt.Errorf("failed to get database for boot repository: %w", err)
		}
		txManager, err := c.TxManager()
		if err != nil {
			return nil, fmt.Errorf("failed to get tx manager for boot repository: %w", err)
		}
		if c.config.BootStoreDriver == config.BootStoreMySQL {
			return deviceRepository.NewMySQLBootRepository(db, txManager), nil
		}
		return deviceRepository.NewPostgreSQLBootRepository(db, txManager), nil

	default:
		return nil, fmt.Errorf("unsupported boot store driver: %s", c.config.BootStoreDriver)
	}
}

func (c *Container) initDeviceUseCase() (deviceUseCase.DeviceUseCase, error) {
	bootRepo, err := c.BootRepository()
	if err != nil {
		return nil, fmt.Errorf("failed to get boot repository for device use case: %w", err)
	}

	blobRepo, err := c.BlobRepository()
	if err != nil {
		return nil, fmt.Errorf("failed to get blob repository for device use case: %w", err)
	}

	cipher, err := c.PayloadCipher()
	if err != nil {
		return nil, fmt.Errorf("failed to get payload cipher for device use case: %w", err)
	}

	useCase := deviceUseCase.NewDeviceUseCase(bootRepo, blobRepo, cipher, deviceUseCase.Options{
		BootFlags: deviceDomain.BootFlags{
			EnableTelemetry: c.config.BootFlagEnableTelemetry,
			LogLevel:        c.config.BootFlagLogLevel,
		},
		DirectiveAction:     c.config.DirectiveAction,
		DirectiveTargetPath: c.config.DirectiveTargetPath,
		IngestPrefix:        c.config.IngestPrefix,
		StorageTimeout:      c.config.StorageTimeout,
	})

	businessMetrics, err := c.BusinessMetrics()
	if err != nil {
		return nil, fmt.Errorf("failed to get business metrics for device use case: %w", err)
	}

	return deviceUseCase.NewDeviceUseCaseWithMetrics(useCase, businessMetrics), nil
}
