package testhelpers

// fixtureSQL loads a small deterministic data set. Integration tests assert against these
// exact rows, so change them together.
const fixtureSQL = `
INSERT INTO categorias (id_categoria, nombre) VALUES
    (1, 'Electrónica'), (2, 'Muebles'), (3, 'Oficina'), (4, 'Hogar');

INSERT INTO tipos_usuario (id_tipo_usuario, nombre) VALUES (1, 'Admin'), (2, 'Cliente');
INSERT INTO tipos_vendedor (id_tipo_vendedor, nombre) VALUES (1, 'Interno'), (2, 'Externo');
INSERT INTO estados_venta (id_estado, nombre) VALUES (1, 'Completado'), (2, 'Pendiente'), (3, 'Cancelado');

INSERT INTO productos (id_producto, nombre, precio, stock, id_categoria) VALUES
    (1, 'Laptop Pro', 1200.00, 50, 1),
    (2, 'Monitor 4K', 450.00, 30, 1),
    (3, 'Silla Ergonómica', 250.00, 20, 2),
    (4, 'Archivador', 60.00, 50, 3),
    (5, 'Lámpara LED', 35.00, 80, 4);

INSERT INTO usuarios (id_usuario, nombre, email, id_tipo_usuario) VALUES
    (1, 'Juan Perez', 'juan.perez@example.com', 2),
    (2, 'Maria Lopez', 'maria.lopez@example.com', 2);

INSERT INTO vendedores (id_vendedor, nombre, region, id_tipo_vendedor) VALUES
    (1, 'Carlos Ruiz', 'Norte', 1),
    (2, 'Ana Gomez', 'Sur', 1),
    (3, 'Pedro Martinez', 'Este', 2);

INSERT INTO ventas (id_venta, id_usuario, id_vendedor, id_producto, id_estado, total, cantidad, fecha_venta) VALUES
    (1, 1, 1, 1, 1, 2400.00, 2, '2024-01-15 10:30:00'),
    (2, 2, 1, 2, 1, 450.00, 1, '2024-02-03 16:05:00'),
    (3, 1, 2, 3, 1, 750.00, 3, '2024-02-20 09:00:00'),
    (4, 2, 3, 4, 2, 60.00, 1, '2024-03-01 12:00:00'),
    (5, 1, 3, 5, 1, 70.00, 2, '2024-03-11 18:45:00');
`
